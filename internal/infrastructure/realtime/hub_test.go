package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

func event(id string) domain.NotificationEvent {
	return domain.NotificationEvent{Kind: domain.EventTaskCreated, Message: "created " + id, TaskID: id}
}

func TestHub_BroadcastReachesEverySubscriber(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	owner := hub.Subscribe(&domain.Principal{ID: "u1", Role: domain.RoleMember})
	stranger := hub.Subscribe(&domain.Principal{ID: "u2", Role: domain.RoleMember})
	anonymous := hub.Subscribe(nil)

	require.NoError(t, hub.Broadcast(context.Background(), event("t1")))

	for _, sub := range []*Subscriber{owner, stranger, anonymous} {
		select {
		case got := <-sub.C:
			assert.Equal(t, "t1", got.TaskID)
		default:
			t.Fatalf("subscriber %d did not receive the event", sub.ID)
		}
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.Subscribe(nil)
	require.Equal(t, 1, hub.Len())

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Len())

	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed")

	require.NoError(t, hub.Broadcast(context.Background(), event("t1")))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	slow := hub.Subscribe(nil)
	fast := hub.Subscribe(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = hub.Broadcast(context.Background(), event("t"))
			<-fast.C
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	assert.Equal(t, uint64(9), slow.Dropped())
	assert.Equal(t, uint64(0), fast.Dropped())
	assert.Equal(t, uint64(9), hub.Stats().Dropped)
}

func TestHub_ConcurrentSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(nil)
			hub.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			_ = hub.Broadcast(ctx, event("t"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Len())
}

func TestHub_Stats(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	hub.Subscribe(&domain.Principal{ID: "u1"})
	hub.Subscribe(nil)

	st := hub.Stats()
	assert.Equal(t, 2, st.Subscribers)
	assert.Equal(t, 1, st.Authenticated)
}
