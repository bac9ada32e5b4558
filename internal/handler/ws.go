package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/scangate/qrlogin-server-go/internal/service"
	"github.com/scangate/qrlogin-server-go/internal/ws"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsMaxFrameSize = 4096
)

// WSHandler is the notification channel endpoint. Each inbound frame is a
// poll trigger; the reply is the session's current status snapshot. Pushes
// from the coordinator ride the same connection through the registry.
type WSHandler struct {
	login    *service.LoginService
	registry *ws.Registry

	// Host patterns for websocket.Accept cross-origin checks, derived from
	// the configured allowed origins.
	originPatterns []string
}

func NewWSHandler(login *service.LoginService, registry *ws.Registry, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		login:          login,
		registry:       registry,
		originPatterns: originPatterns(allowedOrigins),
	}
}

// GET /ws/{sessionID}
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("ws accept failed")
		return
	}
	c.SetReadLimit(wsMaxFrameSize)

	if !h.login.Exists(sessionID) {
		c.Close(websocket.StatusPolicyViolation, "session not found")
		return
	}

	conn := h.registry.Bind(sessionID)
	defer h.registry.Unbind(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log.Info().Str("sessionId", sessionID).Msg("ws connection established")

	// Sole writer for this connection: drains pushes and poll replies,
	// closes after a terminal event or when the binding is superseded.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case <-conn.Done():
				c.Close(websocket.StatusGoingAway, "binding superseded")
				return
			case ev := <-conn.Send:
				writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := wsjson.Write(writeCtx, c, ev)
				writeCancel()

				if err != nil {
					log.Debug().Err(err).Str("sessionId", sessionID).Msg("ws write failed")
					return
				}
				if ev.Terminal {
					c.Close(websocket.StatusNormalClosure, string(ev.Status))
					return
				}
			}
		}
	}()

	// Read loop: every inbound frame triggers a status snapshot reply.
	for {
		if _, _, err := c.Read(ctx); err != nil {
			break
		}

		ev := h.login.Snapshot(sessionID)
		select {
		case conn.Send <- ev:
		default:
			log.Warn().Str("sessionId", sessionID).Msg("ws poll reply dropped, queue full")
		}
	}

	cancel()
	<-writerDone

	log.Info().Str("sessionId", sessionID).Msg("ws connection closed")
}

func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
