package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/infrastructure/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// RealtimeHandler upgrades clients to a websocket and streams every task
// notification to them.
type RealtimeHandler struct {
	hub      *realtime.Hub
	resolver ports.IdentityResolver
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewRealtimeHandler builds the handler. allowedOrigins restricts the
// browser Origin header; "*" accepts any origin.
func NewRealtimeHandler(hub *realtime.Hub, resolver ports.IdentityResolver, allowedOrigins []string, log zerolog.Logger) *RealtimeHandler {
	h := &RealtimeHandler{hub: hub, resolver: resolver, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Connect handles GET /v1/realtime. The connection is never refused for
// lack of credentials; identity is resolved once, for logging only.
//
// @Summary      Realtime notifications
// @Description  Upgrades to a websocket that receives every task event as JSON.
// @Tags         realtime
// @Param        token  query  string  false  "Bearer token (browsers cannot set headers on websockets)"
// @Success      101    {string}  string  "Switching Protocols"
// @Router       /v1/realtime [get]
func (h *RealtimeHandler) Connect(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if tok := c.QueryParam("token"); tok != "" {
			header = "Bearer " + tok
		}
	}
	p := h.resolver.Resolve(c.Request().Context(), header)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	sub := h.hub.Subscribe(p)
	log := h.log.With().Uint64("subscriber_id", sub.ID).Logger()
	if p != nil {
		log = log.With().Str("user_id", p.ID).Logger()
	}
	log.Info().Msg("realtime client connected")

	go h.readPump(conn, sub)
	h.writePump(conn, sub, log)

	log.Info().Uint64("dropped", sub.Dropped()).Msg("realtime client disconnected")
	return nil
}

// Stats handles GET /v1/admin/realtime.
//
// @Summary   Realtime subscriber stats
// @Tags      admin
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  realtime.Stats
// @Failure   401  {object}  errorResponse
// @Failure   403  {object}  errorResponse
// @Router    /v1/admin/realtime [get]
func (h *RealtimeHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.hub.Stats())
}

// readPump drains client frames so control messages are processed. Clients
// are not expected to send anything. It removes the subscriber on exit,
// which in turn stops writePump.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, sub *realtime.Subscriber) {
	defer h.hub.Unsubscribe(sub)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RealtimeHandler) writePump(conn *websocket.Conn, sub *realtime.Subscriber, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Debug().Err(err).Msg("realtime write failed")
				h.hub.Unsubscribe(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		set[strings.ToLower(o)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		// Same-origin requests are always allowed.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
