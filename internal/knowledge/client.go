// Package knowledge provides the client for the document question-answering
// collaborator, with canned fallback answers when it is unavailable.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// Client queries the knowledge collaborator over HTTP. A circuit breaker
// guards the call so a flapping collaborator degrades to canned answers
// instead of stalling every chat turn.
type Client struct {
	baseURL string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a knowledge client. An empty baseURL switches the
// client to canned-only mode: Ask never touches the network.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "knowledge-query",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Info("Knowledge breaker state change", "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Available reports whether a collaborator endpoint is configured.
func (c *Client) Available() bool {
	return c.baseURL != ""
}

// Ask answers a free-text question. It never returns an error: when the
// collaborator is unconfigured, unreachable, or the breaker is open, a
// canned answer is substituted.
func (c *Client) Ask(ctx context.Context, question string) domain.Answer {
	if !c.Available() {
		return CannedAnswer(question)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.query(ctx, question)
	})
	if err != nil {
		slog.Warn("Knowledge query failed, substituting canned answer", "error", err)
		return CannedAnswer(question)
	}
	answer := result.(*domain.Answer)
	answer.Question = question
	return *answer
}

func (c *Client) query(ctx context.Context, question string) (*domain.Answer, error) {
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call knowledge service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge service returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Success        bool            `json:"success"`
		Answer         string          `json:"answer"`
		Sources        []domain.Source `json:"sources"`
		SourceCount    int             `json:"source_count"`
		ProcessingTime float64         `json:"processing_time"`
		Error          string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode knowledge response: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("knowledge service error: %s", decoded.Error)
	}
	if strings.TrimSpace(decoded.Answer) == "" {
		return nil, fmt.Errorf("knowledge service returned empty answer")
	}

	return &domain.Answer{
		Text:           decoded.Answer,
		Sources:        decoded.Sources,
		SourceCount:    decoded.SourceCount,
		ProcessingTime: decoded.ProcessingTime,
	}, nil
}
