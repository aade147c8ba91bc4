// Package chat implements the conversational front end: two bots (the
// complaint assistant and the registration guide) built on multi-turn
// workflow state machines, plus the HTTP/WebSocket transport that serves
// them.
package chat

import (
	"context"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/knowledge"
	"github.com/shivin4/RAGSebi/internal/scores"
)

// Bot identifies which conversational surface a session belongs to.
type Bot string

const (
	// BotComplaint is the SCORES complaint assistant.
	BotComplaint Bot = "complaint"
	// BotGuide is the intermediary registration guide.
	BotGuide Bot = "guide"
)

// ValidBot reports whether name is a recognized bot identifier.
func ValidBot(name string) bool {
	return Bot(name) == BotComplaint || Bot(name) == BotGuide
}

// Response is one assistant turn: text to render plus optional action
// buttons. Quick-reply actions are fed back through the controller verbatim
// when clicked.
type Response struct {
	Text    string              `json:"response"`
	Replies []domain.QuickReply `json:"quick_replies,omitempty"`
}

// ComplaintService is the SCORES collaborator surface the complaint bot
// depends on. Implemented by the HTTP client; tests substitute fakes.
type ComplaintService interface {
	// Register creates a SCORES account and returns one-time credentials.
	Register(ctx context.Context, name, pan, email, mobile, dob string) (*scores.RegisterResult, error)

	// Lodge files a complaint and returns the assigned complaint ID.
	Lodge(ctx context.Context, creds domain.Credentials, entityType, category, description string, files []domain.UploadedFile) (string, error)

	// Track fetches the current view of a complaint.
	Track(ctx context.Context, creds domain.Credentials, complaintID string) (*scores.TrackedComplaint, error)

	// Escalate raises a complaint to the next escalation level.
	Escalate(ctx context.Context, creds domain.Credentials, complaintID string) (*scores.EscalateResult, error)

	// CloseComplaint closes a complaint with optional feedback.
	CloseComplaint(ctx context.Context, creds domain.Credentials, complaintID, feedback string) (*scores.CloseResult, error)
}

// KnowledgeService answers free-form regulatory questions. Ask never fails;
// when the collaborator is unreachable it returns a canned answer.
type KnowledgeService interface {
	Ask(ctx context.Context, question string) domain.Answer
	Available() bool
}

// Ensure the HTTP clients satisfy the collaborator interfaces.
var (
	_ ComplaintService = (*scores.Client)(nil)
	_ KnowledgeService = (*knowledge.Client)(nil)
)
