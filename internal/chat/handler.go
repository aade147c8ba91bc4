package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/identity"
)

// maxRequestBodySize bounds chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

// RateLimiter implements a per-user sliding-window rate limiter. The key
// is userID only — not userID:sessionID — so clients cannot bypass
// throttling by opening new chat sessions.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter and starts the background
// eviction goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// startEviction periodically removes expired keys from the requests map,
// preventing unbounded memory growth.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for range ticker.C {
			r.mu.Lock()
			cutoff := time.Now().Add(-r.window)
			for key, times := range r.requests {
				var fresh []time.Time
				for _, t := range times {
					if t.After(cutoff) {
						fresh = append(fresh, t)
					}
				}
				if len(fresh) == 0 {
					delete(r.requests, key)
				} else {
					r.requests[key] = fresh
				}
			}
			r.mu.Unlock()
		}
	}()
}

// Handler serves the chat HTTP and WebSocket API for both bots.
type Handler struct {
	ctrl            *Controller
	mgr             *Manager
	knowledge       KnowledgeService
	rateLimiter     *RateLimiter
	allowedWSOrigin string
	isDev           bool
}

// NewHandler creates the chat handler.
func NewHandler(ctrl *Controller, mgr *Manager, knowledgeClient KnowledgeService, limiter *RateLimiter, allowedWSOrigin string, isDev bool) *Handler {
	return &Handler{
		ctrl:            ctrl,
		mgr:             mgr,
		knowledge:       knowledgeClient,
		rateLimiter:     limiter,
		allowedWSOrigin: allowedWSOrigin,
		isDev:           isDev,
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/{bot}", h.HandleChat)
		r.Get("/chat/{bot}/ws", h.HandleWebSocket)
		r.Post("/chat/{bot}/files", h.HandleFileUpload)
		r.Get("/chat/{bot}/files", h.HandleFileList)
		r.Delete("/chat/{bot}/files", h.HandleFileRemove)
		r.Post("/query", h.HandleQuery)
		r.Get("/health", h.HandleHealth)
	})
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string              `json:"session_id"`
	Reply     string              `json:"reply"`
	Actions   []domain.QuickReply `json:"actions,omitempty"`
	Timestamp string              `json:"timestamp"`
}

// HandleChat handles POST /api/chat/{bot}: one request/response chat turn.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bot := chi.URLParam(r, "bot")
	if !ValidBot(bot) {
		writeJSONError(w, http.StatusNotFound, "unknown bot")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		writeJSONError(w, http.StatusTooManyRequests, "slow down — too many messages")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	session := h.mgr.GetOrCreate(userID, req.SessionID, Bot(bot))
	resp := h.ctrl.Handle(r.Context(), session, req.Message, "chat_http")

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: session.ID,
		Reply:     resp.Text,
		Actions:   resp.Replies,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// fileReport is the per-file outcome of an upload batch.
type fileReport struct {
	Name     string `json:"name"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// HandleFileUpload handles POST /api/chat/{bot}/files: stages complaint
// attachments through the intake gate. Rejections are per file; valid
// files in the same batch are still accepted.
func (h *Handler) HandleFileUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no files in request")
		return
	}

	var reports []fileReport
	accepted := 0
	for _, header := range r.MultipartForm.File["files"] {
		f := domain.UploadedFile{
			Name:      header.Filename,
			Size:      header.Size,
			MediaType: header.Header.Get("Content-Type"),
		}
		if err := session.Attach(f); err != nil {
			reports = append(reports, fileReport{Name: header.Filename, Accepted: false, Reason: err.Error()})
			continue
		}
		accepted++
		reports = append(reports, fileReport{Name: header.Filename, Accepted: true})
	}

	slog.Info("File batch processed", "session_id", session.ID, "accepted", accepted, "total", len(reports))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   reports,
		"staged":  len(session.StagedFiles()),
	})
}

// HandleFileList handles GET /api/chat/{bot}/files.
func (h *Handler) HandleFileList(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   session.StagedFiles(),
	})
}

// HandleFileRemove handles DELETE /api/chat/{bot}/files?name=...: removes
// the first staged file with a matching name.
func (h *Handler) HandleFileRemove(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	if !session.DetachByName(name) {
		writeJSONError(w, http.StatusNotFound, "no staged file with that name")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   session.StagedFiles(),
	})
}

// HandleQuery handles POST /api/query: the knowledge collaborator proxy
// exposed to the web page. Mirrors the collaborator's answer shape, with
// fallback marked when the answer is canned.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSONError(w, http.StatusBadRequest, "question is required")
		return
	}

	started := time.Now()
	answer := h.knowledge.Ask(r.Context(), req.Question)
	if answer.ProcessingTime == 0 {
		answer.ProcessingTime = time.Since(started).Seconds()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"question":        answer.Question,
		"answer":          answer.Text,
		"sources":         answer.Sources,
		"source_count":    answer.SourceCount,
		"processing_time": answer.ProcessingTime,
		"fallback":        answer.Fallback,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHealth handles GET /api/health for the chat service.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":              "healthy",
		"sessions":            h.mgr.Count(),
		"knowledge_available": h.knowledge.Available(),
	})
}

// sessionFromRequest resolves the session addressed by a files request.
// The session must already exist: files are staged for an in-progress
// complaint.
func (h *Handler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	bot := chi.URLParam(r, "bot")
	if !ValidBot(bot) {
		writeJSONError(w, http.StatusNotFound, "unknown bot")
		return nil, false
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.FormValue("session_id")
	}
	session := h.mgr.Get(userID, sessionID)
	if session == nil || session.Bot != Bot(bot) {
		writeJSONError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return session, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
