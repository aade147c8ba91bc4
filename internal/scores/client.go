// Package scores provides the HTTP client for the SCORES complaint service.
package scores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// APIError is an explicit failure response from the SCORES service. Its
// message is safe to show to the user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the SCORES complaint service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a SCORES client. timeout bounds each call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// RegisterResult is the credential pair returned on successful registration.
type RegisterResult struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
	Message  string `json:"message"`
}

// TrackedEvent is one history entry of a tracked complaint.
type TrackedEvent struct {
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

// TrackedComplaint is the complaint view returned by the track endpoint.
type TrackedComplaint struct {
	ComplaintID     string         `json:"complaint_id"`
	Status          string         `json:"status"`
	EntityType      string         `json:"entity_type"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	Files           []string       `json:"files"`
	CreatedAt       string         `json:"created_at"`
	DaysElapsed     int            `json:"days_elapsed"`
	EscalationLevel int            `json:"escalation_level"`
	Reminders       []string       `json:"reminders"`
	History         []TrackedEvent `json:"history"`
}

// EscalateResult reports the outcome of an escalation.
type EscalateResult struct {
	ComplaintID     string `json:"complaint_id"`
	EscalationLevel int    `json:"escalation_level"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// CloseResult reports the outcome of closing a complaint.
type CloseResult struct {
	ComplaintID string `json:"complaint_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// Register creates a SCORES account and returns its one-time credentials.
func (c *Client) Register(ctx context.Context, name, pan, email, mobile, dob string) (*RegisterResult, error) {
	payload := map[string]string{
		"name": name, "pan": pan, "email": email, "mobile": mobile, "dob": dob,
	}
	var result RegisterResult
	if err := c.postJSON(ctx, "/api/register", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lodge files a complaint. When files are attached the request goes up as
// multipart form data; the chat layer never holds file bytes, so each part
// carries the validated name only.
func (c *Client) Lodge(ctx context.Context, creds domain.Credentials, entityType, category, description string, files []domain.UploadedFile) (string, error) {
	var result struct {
		ComplaintID string `json:"complaint_id"`
	}

	if len(files) == 0 {
		payload := map[string]interface{}{
			"user_id":     creds.UserID,
			"password":    creds.Password,
			"entity_type": entityType,
			"category":    category,
			"description": description,
		}
		if err := c.postJSON(ctx, "/api/lodge", payload, &result); err != nil {
			return "", err
		}
		return result.ComplaintID, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"user_id":     creds.UserID,
		"password":    creds.Password,
		"entity_type": entityType,
		"category":    category,
		"description": description,
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write lodge field %s: %w", key, err)
		}
	}
	for _, file := range files {
		if _, err := mw.CreateFormFile("files", file.Name); err != nil {
			return "", fmt.Errorf("attach file %s: %w", file.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/lodge", &buf)
	if err != nil {
		return "", fmt.Errorf("build lodge request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.ComplaintID, nil
}

// Track fetches the current state of a complaint.
func (c *Client) Track(ctx context.Context, creds domain.Credentials, complaintID string) (*TrackedComplaint, error) {
	payload := map[string]string{
		"complaint_id": complaintID,
		"user_id":      creds.UserID,
		"password":     creds.Password,
	}
	var result struct {
		Complaint TrackedComplaint `json:"complaint"`
	}
	if err := c.postJSON(ctx, "/api/track", payload, &result); err != nil {
		return nil, err
	}
	return &result.Complaint, nil
}

// Escalate raises a complaint one escalation level.
func (c *Client) Escalate(ctx context.Context, creds domain.Credentials, complaintID string) (*EscalateResult, error) {
	payload := map[string]string{
		"complaint_id": complaintID,
		"user_id":      creds.UserID,
		"password":     creds.Password,
	}
	var result EscalateResult
	if err := c.postJSON(ctx, "/api/review", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CloseComplaint closes a complaint with optional feedback.
func (c *Client) CloseComplaint(ctx context.Context, creds domain.Credentials, complaintID, feedback string) (*CloseResult, error) {
	payload := map[string]string{
		"complaint_id": complaintID,
		"user_id":      creds.UserID,
		"password":     creds.Password,
		"feedback":     feedback,
	}
	var result CloseResult
	if err := c.postJSON(ctx, "/api/close", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call scores service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode scores response: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode scores envelope: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = fmt.Sprintf("scores service returned status %d", resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode scores payload: %w", err)
		}
	}
	return nil
}
