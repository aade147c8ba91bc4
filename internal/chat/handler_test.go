package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shivin4/RAGSebi/internal/identity"
)

const testUserID = "anon-test"

func newTestRouter(t *testing.T, sc *fakeScores, kn *fakeKnowledge, limit int) (http.Handler, *Manager) {
	t.Helper()
	ctrl := newTestController(sc, kn)
	mgr := NewManager(time.Hour)
	h := NewHandler(ctrl, mgr, kn, NewRateLimiter(limit, time.Minute), "", true)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithUserID(req.Context(), testUserID)))
		})
	})
	h.RegisterRoutes(r)
	return r, mgr
}

func postChat(t *testing.T, router http.Handler, bot, sessionID, message string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(chatRequest{SessionID: sessionID, Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/"+bot, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestHandleChatTurn(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)

	w := postChat(t, router, "complaint", "", "help")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeChat(t, w)
	if resp.SessionID == "" {
		t.Fatal("expected a minted session ID")
	}
	if !strings.Contains(resp.Reply, "SCORES") {
		t.Fatalf("expected help text, got %q", resp.Reply)
	}

	// A follow-up with the session ID continues the same conversation.
	w = postChat(t, router, "complaint", resp.SessionID, "register")
	second := decodeChat(t, w)
	if second.SessionID != resp.SessionID {
		t.Fatalf("session not reused: %q vs %q", second.SessionID, resp.SessionID)
	}
	if !strings.Contains(second.Reply, "full name") {
		t.Fatalf("expected registration start, got %q", second.Reply)
	}
}

func TestHandleChatQuickReplies(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)

	w := postChat(t, router, "complaint", "", "register")
	resp := decodeChat(t, w)
	for _, msg := range []string{"Asha Rao", "ABCDE1234F", "asha@example.com", "9876543210"} {
		postChat(t, router, "complaint", resp.SessionID, msg)
	}
	w = postChat(t, router, "complaint", resp.SessionID, "01/01/1990")
	final := decodeChat(t, w)
	if len(final.Actions) != 1 || final.Actions[0].Action != "file a complaint" {
		t.Fatalf("expected quick-reply action in response, got %+v", final.Actions)
	}
}

func TestHandleChatValidation(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)

	if w := postChat(t, router, "banker", "", "hi"); w.Code != http.StatusNotFound {
		t.Errorf("unknown bot: status = %d, want 404", w.Code)
	}
	if w := postChat(t, router, "complaint", "", "   "); w.Code != http.StatusBadRequest {
		t.Errorf("blank message: status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/complaint", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestHandleChatRateLimit(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 2)

	postChat(t, router, "complaint", "", "help")
	postChat(t, router, "complaint", "", "help")
	if w := postChat(t, router, "complaint", "", "help"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestHandleChatRequiresIdentity(t *testing.T) {
	t.Parallel()

	ctrl := newTestController(&fakeScores{}, &fakeKnowledge{})
	h := NewHandler(ctrl, NewManager(time.Hour), &fakeKnowledge{}, NewRateLimiter(100, time.Minute), "", true)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	w := postChat(t, r, "complaint", "", "help")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

// multipartUpload builds a files upload with explicit per-part media types.
func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, mediaType := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		header.Set("Content-Type", mediaType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte("content")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestFileUploadBatch(t *testing.T) {
	t.Parallel()

	router, mgr := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	session := mgr.GetOrCreate(testUserID, "", BotComplaint)

	body, contentType := multipartUpload(t, map[string]string{
		"proof.pdf":    "application/pdf",
		"malware.exe":  "application/x-msdownload",
		"snapshot.png": "image/png",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/complaint/files?session_id="+session.ID, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool         `json:"success"`
		Files   []fileReport `json:"files"`
		Staged  int          `json:"staged"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Staged != 2 {
		t.Fatalf("staged = %d, want 2 (the rejected file must not block the batch)", resp.Staged)
	}
	for _, report := range resp.Files {
		wantAccepted := report.Name != "malware.exe"
		if report.Accepted != wantAccepted {
			t.Errorf("%s: accepted = %v, want %v (%s)", report.Name, report.Accepted, wantAccepted, report.Reason)
		}
	}
}

func TestFileListAndRemove(t *testing.T) {
	t.Parallel()

	router, mgr := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	session := mgr.GetOrCreate(testUserID, "", BotComplaint)
	if err := session.Attach(pdf("proof.pdf", 100)); err != nil {
		t.Fatalf("attach: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/complaint/files?session_id="+session.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "proof.pdf") {
		t.Fatalf("list: status = %d, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/chat/complaint/files?session_id="+session.ID+"&name=proof.pdf", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status = %d, body %s", w.Code, w.Body.String())
	}
	if len(session.StagedFiles()) != 0 {
		t.Fatal("file should be removed")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/chat/complaint/files?session_id="+session.ID+"&name=missing.pdf", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("remove missing: status = %d, want 404", w.Code)
	}
}

func TestFileUploadUnknownSession(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	body, contentType := multipartUpload(t, map[string]string{"proof.pdf": "application/pdf"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/complaint/files?session_id=no-such", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	t.Parallel()

	kn := &fakeKnowledge{answer: "SCORES is SEBI's complaint portal."}
	router, _ := newTestRouter(t, &fakeScores{}, kn, 100)

	body := strings.NewReader(`{"question": "what is scores?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Answer  string `json:"answer"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Answer != "SCORES is SEBI's complaint portal." {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": ""}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank question: status = %d, want 400", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeScores{}, &fakeKnowledge{}, 100)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}
