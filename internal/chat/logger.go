package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConversationLogEvent is one NDJSON record in a session's conversation
// log.
type ConversationLogEvent struct {
	Timestamp  string                 `json:"timestamp"`
	UserID     string                 `json:"user_id"`
	SessionID  string                 `json:"session_id"`
	Channel    string                 `json:"channel"`
	Direction  string                 `json:"direction"`
	EventType  string                 `json:"event_type"`
	Content    string                 `json:"content"`
	ContentRaw string                 `json:"content_raw"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ConversationLogger records chat turns for later review. Implementations
// must never block the chat turn.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// noopConversationLogger discards all events.
type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// ConversationLogConfig configures the file-backed logger.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// fileConversationLogger writes one NDJSON file per user/session under the
// configured directory. Events go through a bounded queue drained by a
// background goroutine; when the queue is full, events are dropped rather
// than blocking the chat turn.
type fileConversationLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	mu    sync.Mutex
	files map[string]*os.File // userID/sessionID -> open file
}

// NewConversationLogger creates the file-backed logger, or the no-op
// logger when disabled.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
		files:  make(map[string]*os.File),
	}
	l.wg.Add(1)
	go l.drain()
	return l, nil
}

// Log enqueues an event. Drops it when the queue is full or the logger is
// closed.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	select {
	case <-l.done:
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID, "session_id", event.SessionID)
	}
}

// Close stops the drain goroutine, flushes queued events, and closes every
// open log file.
func (l *fileConversationLogger) Close() error {
	close(l.done)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for key, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.files, key)
	}
	return firstErr
}

func (l *fileConversationLogger) drain() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.queue:
			l.write(event)
		case <-l.done:
			// Flush whatever is still queued.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) {
	f, err := l.file(event.UserID, event.SessionID)
	if err != nil {
		l.logger.Warn("conversation log open failed", "error", err)
		return
	}

	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("conversation log marshal failed", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("conversation log write failed", "error", err)
	}
}

func (l *fileConversationLogger) file(userID, sessionID string) (*os.File, error) {
	userID = sanitizePathComponent(userID)
	sessionID = sanitizePathComponent(sessionID)
	key := userID + "/" + sessionID

	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(l.dir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, sessionID+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l.files[key] = f
	return f, nil
}

var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
)

// cleanForReadability strips ANSI escape sequences and control characters
// so the readable content column stays greppable.
func cleanForReadability(raw string) string {
	clean := ansiPattern.ReplaceAllString(raw, "")
	clean = controlPattern.ReplaceAllString(clean, "")
	return strings.TrimSpace(clean)
}

var unsafePathPattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizePathComponent(s string) string {
	s = unsafePathPattern.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
