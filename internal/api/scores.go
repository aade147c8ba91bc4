package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/store"
)

const (
	maxUploadFiles = 10
	maxUploadBytes = 20 << 20 // 20 MB per file
)

// allowedUploadExts is the server-side extension whitelist for lodged files.
var allowedUploadExts = map[string]bool{
	".txt": true, ".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// ScoresHandler handles the complaint lifecycle endpoints.
type ScoresHandler struct {
	*Handler
}

// NewScoresHandler creates a new complaint lifecycle handler.
func NewScoresHandler(base *Handler) *ScoresHandler {
	return &ScoresHandler{Handler: base}
}

// RegisterRoutes registers the complaint lifecycle routes.
func (h *ScoresHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/lodge", h.Lodge)
		r.Post("/track", h.Track)
		r.Post("/review", h.Review)
		r.Post("/close", h.Close)
		r.Get("/stats", h.Stats)
	})
}

type registerRequest struct {
	Name   string `json:"name"`
	PAN    string `json:"pan"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
	DOB    string `json:"dob"`
}

// Register creates a new SCORES account and returns its one-time password.
func (h *ScoresHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}
	pan, ok := domain.NormalizePAN(req.PAN)
	if !ok {
		Error(w, http.StatusBadRequest, "pan must be exactly 10 characters")
		return
	}
	if !domain.ValidEmail(req.Email) {
		Error(w, http.StatusBadRequest, "invalid email address")
		return
	}
	mobile, ok := domain.NormalizeMobile(req.Mobile)
	if !ok {
		Error(w, http.StatusBadRequest, "mobile must contain exactly 10 digits")
		return
	}
	if !domain.ValidDOB(req.DOB) {
		Error(w, http.StatusBadRequest, "dob must be in DD/MM/YYYY format")
		return
	}

	now := time.Now()
	userID, err := newUserID(now)
	if err != nil {
		slog.Error("Failed to mint user id", "error", err)
		Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	password, err := newPassword()
	if err != nil {
		slog.Error("Failed to generate password", "error", err)
		Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &domain.User{
		UserID:       userID,
		Name:         name,
		PAN:          pan,
		Email:        strings.TrimSpace(req.Email),
		Mobile:       mobile,
		DOB:          strings.TrimSpace(req.DOB),
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if err == store.ErrDuplicatePAN {
			Error(w, http.StatusConflict, "an account already exists for this PAN")
			return
		}
		slog.Error("Failed to create user", "error", err)
		Error(w, http.StatusInternalServerError, "registration failed")
		return
	}

	slog.Info("User registered", "user_id", userID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user_id":  userID,
		"password": password,
		"message":  "Registration successful. Keep your credentials safe.",
	})
}

type lodgeRequest struct {
	UserID      string   `json:"user_id"`
	Password    string   `json:"password"`
	EntityType  string   `json:"entity_type"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Files       []string `json:"files,omitempty"`
}

// Lodge files a new complaint. Accepts JSON or multipart/form-data; file
// bytes are opaque and only the validated names are stored.
func (h *ScoresHandler) Lodge(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseLodgeRequest(w, r)
	if !ok {
		return
	}

	user, ok := h.authenticate(r.Context(), w, req.UserID, req.Password)
	if !ok {
		return
	}

	if strings.TrimSpace(req.EntityType) == "" || strings.TrimSpace(req.Category) == "" {
		Error(w, http.StatusBadRequest, "entity_type and category are required")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		Error(w, http.StatusBadRequest, "description is required")
		return
	}
	if len(req.Files) > maxUploadFiles {
		Error(w, http.StatusBadRequest, "at most 10 files may be attached")
		return
	}
	for _, name := range req.Files {
		if !allowedUploadExts[strings.ToLower(filepath.Ext(name))] {
			Error(w, http.StatusBadRequest, "file type not allowed: "+name)
			return
		}
	}

	now := time.Now()
	complaintID, err := newComplaintID(now)
	if err != nil {
		slog.Error("Failed to mint complaint id", "error", err)
		Error(w, http.StatusInternalServerError, "failed to lodge complaint")
		return
	}

	complaint := &domain.Complaint{
		ComplaintID:     complaintID,
		UserID:          user.UserID,
		EntityType:      strings.TrimSpace(req.EntityType),
		Category:        strings.TrimSpace(req.Category),
		Description:     strings.TrimSpace(req.Description),
		Files:           req.Files,
		Status:          domain.StatusSubmitted,
		EscalationLevel: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.repo.CreateComplaint(r.Context(), complaint); err != nil {
		slog.Error("Failed to create complaint", "error", err, "user_id", user.UserID)
		Error(w, http.StatusInternalServerError, "failed to lodge complaint")
		return
	}

	slog.Info("Complaint lodged", "complaint_id", complaintID, "user_id", user.UserID, "entity_type", complaint.EntityType)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"complaint_id": complaintID,
		"message":      "Complaint lodged successfully.",
	})
}

// parseLodgeRequest reads a lodge request from JSON or multipart form data.
func (h *ScoresHandler) parseLodgeRequest(w http.ResponseWriter, r *http.Request) (*lodgeRequest, bool) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req lodgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
		return &req, true
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	req := &lodgeRequest{
		UserID:      r.FormValue("user_id"),
		Password:    r.FormValue("password"),
		EntityType:  r.FormValue("entity_type"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
	}
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["files"]
		if len(files) > maxUploadFiles {
			Error(w, http.StatusBadRequest, "at most 10 files may be attached")
			return nil, false
		}
		for _, header := range files {
			if header.Size > maxUploadBytes {
				Error(w, http.StatusBadRequest, "file exceeds 20 MB limit: "+header.Filename)
				return nil, false
			}
			if !allowedUploadExts[strings.ToLower(filepath.Ext(header.Filename))] {
				Error(w, http.StatusBadRequest, "file type not allowed: "+header.Filename)
				return nil, false
			}
			req.Files = append(req.Files, header.Filename)
		}
	}
	return req, true
}

type complaintRequest struct {
	ComplaintID string `json:"complaint_id"`
	UserID      string `json:"user_id"`
	Password    string `json:"password"`
	Feedback    string `json:"feedback,omitempty"`
}

// Track returns a complaint's current state, age, reminders, and history.
func (h *ScoresHandler) Track(w http.ResponseWriter, r *http.Request) {
	_, complaint, ok := h.loadOwnedComplaint(w, r)
	if !ok {
		return
	}

	days := complaint.DaysOpen(time.Now())
	reminders := domain.ReminderNotes(complaint.Status, days)
	if reminders == nil {
		reminders = []string{}
	}

	history, err := h.repo.History(r.Context(), complaint.ComplaintID)
	if err != nil {
		slog.Error("Failed to load complaint history", "error", err, "complaint_id", complaint.ComplaintID)
		Error(w, http.StatusInternalServerError, "failed to track complaint")
		return
	}
	historyOut := make([]map[string]interface{}, 0, len(history))
	for _, event := range history {
		historyOut = append(historyOut, map[string]interface{}{
			"status":     event.Status,
			"notes":      event.Notes,
			"created_at": event.CreatedAt.Format(time.RFC3339),
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"complaint": map[string]interface{}{
			"complaint_id":     complaint.ComplaintID,
			"status":           complaint.Status,
			"entity_type":      complaint.EntityType,
			"category":         complaint.Category,
			"description":      complaint.Description,
			"files":            complaint.Files,
			"created_at":       complaint.CreatedAt.Format(time.RFC3339),
			"updated_at":       complaint.UpdatedAt.Format(time.RFC3339),
			"days_elapsed":     days,
			"escalation_level": complaint.EscalationLevel,
			"reminders":        reminders,
			"history":          historyOut,
		},
	})
}

// Review escalates a complaint one level.
func (h *ScoresHandler) Review(w http.ResponseWriter, r *http.Request) {
	_, complaint, ok := h.loadOwnedComplaint(w, r)
	if !ok {
		return
	}

	if domain.Terminal(complaint.Status) {
		Error(w, http.StatusBadRequest, "complaint is already resolved or closed")
		return
	}
	if complaint.EscalationLevel >= domain.MaxEscalationLevel {
		Error(w, http.StatusBadRequest, "complaint is already escalated to the highest level")
		return
	}

	newLevel := complaint.EscalationLevel + 1
	status := domain.StatusEscalatedL2
	note := "Escalated to senior officer review"
	if newLevel >= domain.MaxEscalationLevel {
		status = domain.StatusEscalatedSEBI
		note = "Escalated to SEBI for direct intervention"
	}

	if err := h.repo.EscalateComplaint(r.Context(), complaint.ComplaintID, newLevel, status, note); err != nil {
		slog.Error("Failed to escalate complaint", "error", err, "complaint_id", complaint.ComplaintID)
		Error(w, http.StatusInternalServerError, "failed to escalate complaint")
		return
	}

	slog.Info("Complaint escalated", "complaint_id", complaint.ComplaintID, "level", newLevel)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"complaint_id":     complaint.ComplaintID,
		"escalation_level": newLevel,
		"status":           status,
		"message":          note + ".",
	})
}

// Close closes a complaint with optional complainant feedback.
func (h *ScoresHandler) Close(w http.ResponseWriter, r *http.Request) {
	req, complaint, ok := h.loadOwnedComplaint(w, r)
	if !ok {
		return
	}

	if domain.Terminal(complaint.Status) {
		Error(w, http.StatusBadRequest, "complaint is already resolved or closed")
		return
	}

	note := "Closed by complainant"
	if strings.TrimSpace(req.Feedback) != "" {
		note = "Closed by complainant with feedback"
	}
	if err := h.repo.CloseComplaint(r.Context(), complaint.ComplaintID, strings.TrimSpace(req.Feedback), note); err != nil {
		slog.Error("Failed to close complaint", "error", err, "complaint_id", complaint.ComplaintID)
		Error(w, http.StatusInternalServerError, "failed to close complaint")
		return
	}

	slog.Info("Complaint closed", "complaint_id", complaint.ComplaintID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"complaint_id": complaint.ComplaintID,
		"status":       domain.StatusClosed,
		"message":      "Complaint closed. Thank you for using SCORES.",
	})
}

// Stats returns aggregate complaint counts.
func (h *ScoresHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		slog.Error("Failed to compute stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// loadOwnedComplaint decodes a complaint request, authenticates the caller,
// and enforces that the complaint belongs to them.
func (h *ScoresHandler) loadOwnedComplaint(w http.ResponseWriter, r *http.Request) (*complaintRequest, *domain.Complaint, bool) {
	var req complaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return nil, nil, false
	}
	if strings.TrimSpace(req.ComplaintID) == "" {
		Error(w, http.StatusBadRequest, "complaint_id is required")
		return nil, nil, false
	}

	user, ok := h.authenticate(r.Context(), w, req.UserID, req.Password)
	if !ok {
		return nil, nil, false
	}

	complaint, err := h.repo.GetComplaint(r.Context(), strings.TrimSpace(req.ComplaintID))
	if err != nil {
		slog.Error("Failed to load complaint", "error", err, "complaint_id", req.ComplaintID)
		Error(w, http.StatusInternalServerError, "failed to load complaint")
		return nil, nil, false
	}
	if complaint == nil {
		Error(w, http.StatusNotFound, "complaint not found")
		return nil, nil, false
	}
	if complaint.UserID != user.UserID {
		Error(w, http.StatusForbidden, "complaint does not belong to this account")
		return nil, nil, false
	}
	return &req, complaint, true
}

// authenticate verifies a user id / password pair.
func (h *ScoresHandler) authenticate(ctx context.Context, w http.ResponseWriter, userID, password string) (*domain.User, bool) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		Error(w, http.StatusUnauthorized, "user_id and password are required")
		return nil, false
	}

	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to load user", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "authentication failed")
		return nil, false
	}
	if user == nil {
		Error(w, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		Error(w, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}
	return user, true
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo store.Repository
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
