package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/identity"
)

// wsClientFrame is a frame received from the browser.
type wsClientFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// wsServerFrame is a frame sent to the browser.
type wsServerFrame struct {
	Type      string              `json:"type"`
	SessionID string              `json:"session_id,omitempty"`
	Content   string              `json:"content,omitempty"`
	Actions   []domain.QuickReply `json:"actions,omitempty"`
}

// wsConn serializes writes to one WebSocket connection. The reader loop
// and the manager's sweeper may both touch the connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// HandleWebSocket handles GET /api/chat/{bot}/ws: the WebSocket chat
// transport. One reader loop per connection; each message frame runs a
// full controller turn and the reply goes back on the same connection.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	bot := chi.URLParam(r, "bot")
	if !ValidBot(bot) {
		http.Error(w, "unknown bot", http.StatusNotFound)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	session := h.mgr.GetOrCreate(userID, r.URL.Query().Get("session_id"), Bot(bot))
	h.mgr.RegisterConn(session, ws)
	defer h.mgr.UnregisterConn(session, ws)

	conn := &wsConn{conn: ws}
	ctx := r.Context()

	if err := conn.writeJSON(ctx, wsServerFrame{Type: "session", SessionID: session.ID}); err != nil {
		slog.Debug("Failed to send session frame", "error", err, "user_id", userID)
		return
	}

	slog.Info("Chat WebSocket connected", "user_id", userID, "session_id", session.ID, "bot", bot)
	h.readLoop(ctx, conn, session, userID)
	slog.Info("Chat WebSocket disconnected", "user_id", userID, "session_id", session.ID)
}

func (h *Handler) readLoop(ctx context.Context, conn *wsConn, session *Session, userID string) {
	for {
		_, data, err := conn.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var frame wsClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if writeErr := conn.writeJSON(ctx, wsServerFrame{Type: "error", Content: "invalid frame"}); writeErr != nil {
				return
			}
			continue
		}

		switch frame.Type {
		case "message":
			if frame.Content == "" {
				if err := conn.writeJSON(ctx, wsServerFrame{Type: "error", Content: "empty message"}); err != nil {
					return
				}
				continue
			}
			if !h.rateLimiter.Allow(userID) {
				if err := conn.writeJSON(ctx, wsServerFrame{Type: "error", Content: "slow down — too many messages"}); err != nil {
					return
				}
				continue
			}
			resp := h.ctrl.Handle(ctx, session, frame.Content, "chat_ws")
			if err := conn.writeJSON(ctx, wsServerFrame{
				Type:      "reply",
				SessionID: session.ID,
				Content:   resp.Text,
				Actions:   resp.Replies,
			}); err != nil {
				slog.Debug("Failed to send reply frame", "error", err, "user_id", userID)
				return
			}
		case "ping":
			if err := conn.writeJSON(ctx, wsServerFrame{Type: "pong"}); err != nil {
				return
			}
		default:
			if err := conn.writeJSON(ctx, wsServerFrame{Type: "error", Content: "unknown frame type"}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedWSOrigin == "*" || h.allowedWSOrigin == "" {
		return true
	}
	if origin == h.allowedWSOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedWSOrigin)
	return false
}
