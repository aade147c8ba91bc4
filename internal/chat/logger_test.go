package chat

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newFileLogger(t *testing.T) (ConversationLogger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 16},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, dir
}

// waitForLogLine polls until the file exists and holds at least n lines.
func waitForLogLine(t *testing.T, path string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, err := os.Open(path)
		if err == nil {
			var lines []string
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			f.Close()
			if len(lines) >= n {
				return lines
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log file %s never reached %d lines", path, n)
	return nil
}

func TestConversationLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	l, dir := newFileLogger(t)

	l.Log(ConversationLogEvent{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    "http",
		Direction:  "inbound",
		EventType:  "user_message",
		ContentRaw: "track my complaint",
	})
	l.Log(ConversationLogEvent{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    "http",
		Direction:  "outbound",
		EventType:  "assistant_message",
		ContentRaw: "Which complaint should I track?",
	})
	l.Log(ConversationLogEvent{
		UserID:     "user-2",
		SessionID:  "sess-9",
		ContentRaw: "hello",
	})

	lines := waitForLogLine(t, filepath.Join(dir, "user-1", "sess-1.ndjson"), 2)

	var first ConversationLogEvent
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line: %v", err)
	}
	if first.Content != "track my complaint" {
		t.Errorf("content = %q, want cleaned raw content", first.Content)
	}
	if first.Timestamp == "" {
		t.Error("expected a populated timestamp")
	}
	if first.Direction != "inbound" || first.EventType != "user_message" {
		t.Errorf("unexpected event fields: %+v", first)
	}

	// The other user's session lands in its own file.
	waitForLogLine(t, filepath.Join(dir, "user-2", "sess-9.ndjson"), 1)
}

func TestConversationLoggerSanitizesPathComponents(t *testing.T) {
	t.Parallel()

	l, dir := newFileLogger(t)
	l.Log(ConversationLogEvent{UserID: "../evil", SessionID: "a/b", ContentRaw: "x"})

	waitForLogLine(t, filepath.Join(dir, ".._evil", "a_b.ndjson"), 1)
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil")); !os.IsNotExist(err) {
		t.Fatal("path traversal must not escape the log directory")
	}
}

func TestConversationLoggerCloseFlushesQueue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewConversationLogger(ConversationLogConfig{Enabled: true, Dir: dir, QueueSize: 64},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	for i := 0; i < 20; i++ {
		l.Log(ConversationLogEvent{UserID: "u", SessionID: "s", ContentRaw: "line"})
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "u", "s.ndjson"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 20 {
		t.Fatalf("expected 20 flushed lines, got %d", lines)
	}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	t.Parallel()

	l, err := NewConversationLogger(ConversationLogConfig{Enabled: false, Dir: "/nonexistent"}, nil)
	if err != nil {
		t.Fatalf("NewConversationLogger: %v", err)
	}
	l.Log(ConversationLogEvent{UserID: "u", SessionID: "s", ContentRaw: "x"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCleanForReadability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"plain text", "plain text"},
		{"\x1b[31mred\x1b[0m text", "red text"},
		{"bell\x07 and null\x00 bytes", "bell and null bytes"},
		{"  padded  ", "padded"},
		{"tabs\tand\nnewlines survive", "tabs\tand\nnewlines survive"},
	}
	for _, tt := range tests {
		if got := cleanForReadability(tt.raw); got != tt.want {
			t.Errorf("cleanForReadability(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
