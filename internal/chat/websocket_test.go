package chat

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) wsServerFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame wsServerFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame %q: %v", data, err)
	}
	return frame
}

func writeFrame(ctx context.Context, t *testing.T, conn *websocket.Conn, frame wsClientFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestWebSocketChat(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/api/chat/complaint/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// The first frame announces the minted session.
	session := readFrame(ctx, t, conn)
	if session.Type != "session" || session.SessionID == "" {
		t.Fatalf("expected session frame, got %+v", session)
	}

	writeFrame(ctx, t, conn, wsClientFrame{Type: "message", Content: "help"})
	reply := readFrame(ctx, t, conn)
	if reply.Type != "reply" || !strings.Contains(reply.Content, "SCORES") {
		t.Fatalf("expected help reply, got %+v", reply)
	}
	if reply.SessionID != session.SessionID {
		t.Fatalf("reply carries session %q, want %q", reply.SessionID, session.SessionID)
	}

	// Quick-reply actions ride along on the reply frame.
	writeFrame(ctx, t, conn, wsClientFrame{Type: "message", Content: "register"})
	readFrame(ctx, t, conn)
	for _, msg := range []string{"Asha Rao", "ABCDE1234F", "asha@example.com", "9876543210"} {
		writeFrame(ctx, t, conn, wsClientFrame{Type: "message", Content: msg})
		readFrame(ctx, t, conn)
	}
	writeFrame(ctx, t, conn, wsClientFrame{Type: "message", Content: "01/01/1990"})
	final := readFrame(ctx, t, conn)
	if len(final.Actions) != 1 || final.Actions[0].Action != "file a complaint" {
		t.Fatalf("expected quick replies on the frame, got %+v", final)
	}
}

func TestWebSocketControlFrames(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/api/chat/guide/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")
	readFrame(ctx, t, conn) // session frame

	writeFrame(ctx, t, conn, wsClientFrame{Type: "ping"})
	if frame := readFrame(ctx, t, conn); frame.Type != "pong" {
		t.Fatalf("expected pong, got %+v", frame)
	}

	writeFrame(ctx, t, conn, wsClientFrame{Type: "message", Content: ""})
	if frame := readFrame(ctx, t, conn); frame.Type != "error" {
		t.Fatalf("expected error for empty message, got %+v", frame)
	}

	writeFrame(ctx, t, conn, wsClientFrame{Type: "subscribe"})
	if frame := readFrame(ctx, t, conn); frame.Type != "error" {
		t.Fatalf("expected error for unknown frame type, got %+v", frame)
	}
}

func TestWebSocketResumesSession(t *testing.T) {
	t.Parallel()

	router, mgr := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	srv := httptest.NewServer(router)
	defer srv.Close()

	existing := mgr.GetOrCreate(testUserID, "", BotComplaint)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/api/chat/complaint/ws?session_id="+existing.ID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	frame := readFrame(ctx, t, conn)
	if frame.SessionID != existing.ID {
		t.Fatalf("expected resumed session %q, got %q", existing.ID, frame.SessionID)
	}
}
