package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/infrastructure/realtime"
)

type headerResolver map[string]*domain.Principal

func (r headerResolver) Resolve(_ context.Context, header string) *domain.Principal {
	return r[header]
}

func newRealtimeServer(t *testing.T, resolver headerResolver) (*realtime.Hub, string) {
	t.Helper()
	hub := realtime.NewHub(8, zerolog.Nop())
	h := NewRealtimeHandler(hub, resolver, []string{"http://app.example.com"}, zerolog.Nop())

	e := newTestEcho()
	e.GET("/v1/realtime", h.Connect)
	e.GET("/v1/admin/realtime", h.Stats)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime"
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn
}

func TestRealtimeHandler_AnonymousReceivesEvents(t *testing.T) {
	hub, url := newRealtimeServer(t, headerResolver{})
	conn := dial(t, url, nil)

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	event := domain.NotificationEvent{
		Kind:    domain.EventTaskCreated,
		Message: "New task created by Ann: Write report",
		TaskID:  "t1",
	}
	require.NoError(t, hub.Broadcast(context.Background(), event))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got domain.NotificationEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.Kind, got.Kind)
	assert.Equal(t, event.Message, got.Message)
	assert.Equal(t, "t1", got.TaskID)

	assert.Equal(t, 0, hub.Stats().Authenticated)
}

func TestRealtimeHandler_ResolvesTokenFromQuery(t *testing.T) {
	hub, url := newRealtimeServer(t, headerResolver{
		"Bearer good": {ID: "u1", Role: domain.RoleMember},
	})
	dial(t, url+"?token=good", nil)

	require.Eventually(t, func() bool { return hub.Stats().Authenticated == 1 }, time.Second, 10*time.Millisecond)
}

func TestRealtimeHandler_InvalidTokenStillConnects(t *testing.T) {
	hub, url := newRealtimeServer(t, headerResolver{})
	dial(t, url, http.Header{"Authorization": []string{"Bearer forged"}})

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.Stats().Authenticated)
}

func TestRealtimeHandler_DisconnectUnsubscribes(t *testing.T) {
	hub, url := newRealtimeServer(t, headerResolver{})
	conn := dial(t, url, nil)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeHandler_RejectsForeignOrigin(t *testing.T) {
	hub, url := newRealtimeServer(t, headerResolver{})

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Len())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/realtime", nil)
	assert.True(t, check(req), "missing origin is allowed")

	req.Header.Set("Origin", "http://APP.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, check(req), "same origin is allowed")

	req.Header.Set("Origin", "http://other.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
