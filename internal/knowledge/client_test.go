package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestAskDecodesCollaboratorAnswer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["question"] == "" {
			t.Error("expected question in request body")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"answer":  "SEBI was established in 1988 and given statutory powers in 1992.",
			"sources": []map[string]interface{}{
				{"source_file": "sebi_act.pdf", "doc_type": "act", "year": 1992, "content_preview": "An Act to provide..."},
			},
			"source_count":    1,
			"processing_time": 0.42,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	answer := client.Ask(context.Background(), "When was SEBI established?")
	if answer.Fallback {
		t.Fatal("expected collaborator answer, got fallback")
	}
	if !strings.Contains(answer.Text, "1988") {
		t.Errorf("unexpected answer text: %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Year != 1992 {
		t.Errorf("sources did not decode: %+v", answer.Sources)
	}
}

func TestAskFallsBackWhenUnconfigured(t *testing.T) {
	t.Parallel()

	client := NewClient("", 5*time.Second)
	answer := client.Ask(context.Background(), "How do I apply for an IPO?")
	if !answer.Fallback {
		t.Fatal("expected fallback answer")
	}
	if !strings.Contains(strings.ToLower(answer.Text), "ipo") {
		t.Errorf("expected IPO canned answer, got %q", answer.Text)
	}
}

func TestAskFallsBackOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	answer := client.Ask(context.Background(), "what is a mutual fund")
	if !answer.Fallback {
		t.Fatal("expected fallback answer on server error")
	}
	if !strings.Contains(strings.ToLower(answer.Text), "mutual fund") {
		t.Errorf("expected mutual fund canned answer, got %q", answer.Text)
	}
}

func TestBreakerShortCircuitsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	for i := 0; i < 5; i++ {
		client.Ask(context.Background(), "anything")
	}

	// Three consecutive failures trip the breaker; later asks skip the network.
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 upstream calls before the breaker opened, got %d", got)
	}
}

func TestCannedAnswerKeywordPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		question string
		want     string
	}{
		{"Tell me about insider trading rules", "Insider trading"},
		{"how to register as a broker", "Intermediary Portal"},
		{"what are the compliance filings", "intermediaries file"},
		{"am I eligible to become an adviser", "Eligibility"},
		{"completely unrelated question", "sebi.gov.in"},
	}

	for _, tt := range tests {
		answer := CannedAnswer(tt.question)
		if !answer.Fallback {
			t.Errorf("CannedAnswer(%q) should be marked fallback", tt.question)
		}
		if !strings.Contains(strings.ToLower(answer.Text), strings.ToLower(tt.want)) {
			t.Errorf("CannedAnswer(%q) = %q, want mention of %q", tt.question, answer.Text, tt.want)
		}
	}
}
