package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const sweepInterval = 1 * time.Minute

// Manager owns all live chat sessions, keyed by anonymous user ID and
// session ID. It is the only structure shared across sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Session      // userID -> sessionID -> session
	conns    map[string]*websocket.Conn          // userID:sessionID -> active WS connection
	ttl      time.Duration
}

// NewManager creates a session manager sweeping sessions idle longer
// than ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]map[string]*Session),
		conns:    make(map[string]*websocket.Conn),
		ttl:      ttl,
	}
}

// Get returns the session with the given IDs, or nil.
func (m *Manager) Get(userID, sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID][sessionID]
}

// GetOrCreate returns the existing session, or mints a fresh one when the
// session ID is empty, unknown, or bound to a different bot.
func (m *Manager) GetOrCreate(userID, sessionID string, bot Bot) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if s := m.sessions[userID][sessionID]; s != nil && s.Bot == bot {
			return s
		}
	}

	s := NewSession(uuid.NewString(), userID, bot)
	if _, ok := m.sessions[userID]; !ok {
		m.sessions[userID] = make(map[string]*Session)
	}
	m.sessions[userID][s.ID] = s
	slog.Info("Chat session created", "user_id", userID, "session_id", s.ID, "bot", bot)
	return s
}

// RegisterConn binds a WebSocket connection to a session. An existing
// connection for the same session is closed and replaced.
func (m *Manager) RegisterConn(s *Session, conn *websocket.Conn) {
	key := s.UserID + ":" + s.ID
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.conns[key]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	m.conns[key] = conn
}

// UnregisterConn removes a WebSocket connection if it is still the active
// one for its session.
func (m *Manager) UnregisterConn(s *Session, conn *websocket.Conn) {
	key := s.UserID + ":" + s.ID
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.conns[key]; ok && current == conn {
		delete(m.conns, key)
	}
}

// StartSweeper runs a background goroutine that reclaims idle sessions
// until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", m.ttl)

		for {
			select {
			case <-ticker.C:
				m.sweep(time.Now())
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// sweep removes sessions idle beyond the TTL and closes their WebSocket
// connections.
func (m *Manager) sweep(now time.Time) {
	type expired struct {
		userID, sessionID string
	}

	m.mu.RLock()
	var victims []expired
	for userID, byID := range m.sessions {
		for sessionID, s := range byID {
			if now.Sub(s.IdleSince()) > m.ttl {
				victims = append(victims, expired{userID, sessionID})
			}
		}
	}
	m.mu.RUnlock()

	if len(victims) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range victims {
		key := v.userID + ":" + v.sessionID
		if conn, ok := m.conns[key]; ok {
			_ = conn.Close(websocket.StatusNormalClosure, "session expired")
			delete(m.conns, key)
		}
		if byID, ok := m.sessions[v.userID]; ok {
			delete(byID, v.sessionID)
			if len(byID) == 0 {
				delete(m.sessions, v.userID)
			}
		}
		slog.Info("Chat session expired", "user_id", v.userID, "session_id", v.sessionID)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, byID := range m.sessions {
		n += len(byID)
	}
	return n
}
