package server

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// handleLive pushes the current status on connect and again after every
// change. Client messages are read only to detect a close.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client.
		s.logger.WarnContext(r.Context(), "live upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	s.deps.Metrics.LiveClientConnected(1)
	defer s.deps.Metrics.LiveClientConnected(-1)
	s.logger.DebugContext(r.Context(), "live client connected", "remote_addr", r.RemoteAddr)

	updates, cancel := s.backend.Subscribe()
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ws.Close()

		ticker := time.NewTicker(livePingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(liveWriteWait))
				return
			case st, ok := <-updates:
				if !ok {
					return
				}
				_ = ws.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := ws.WriteJSON(st); err != nil {
					s.logger.DebugContext(r.Context(), "live write failed", "error", err)
					return
				}
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(livePongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.DebugContext(r.Context(), "live read error", "error", err)
			}
			break
		}
	}
	close(done)
	wg.Wait()
	s.logger.DebugContext(r.Context(), "live client disconnected", "remote_addr", r.RemoteAddr)
}

// checkOrigin admits requests without an Origin header, same-origin
// requests, and origins listed in the server configuration.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
