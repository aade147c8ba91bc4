package chat

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// Phase identifies the workflow a session is currently running.
type Phase string

const (
	// PhaseNone means no workflow is active; free text goes to the
	// intent classifier.
	PhaseNone Phase = ""
	// PhaseRegistration is the SCORES account registration workflow.
	PhaseRegistration Phase = "registration"
	// PhaseComplaint is the complaint filing workflow.
	PhaseComplaint Phase = "complaint"
	// PhaseTracking is the complaint tracking workflow.
	PhaseTracking Phase = "tracking"
	// PhaseEscalation is the complaint escalation workflow.
	PhaseEscalation Phase = "escalation"
	// PhaseClosure is the complaint closure workflow.
	PhaseClosure Phase = "closure"
	// PhaseGuide is the registration guide step walker.
	PhaseGuide Phase = "guide"
)

// Session is one open chat. All fields are guarded by mu; the controller
// holds the lock for the duration of a turn, releasing it only around
// collaborator calls (with busy set so a second turn cannot interleave).
type Session struct {
	ID     string
	UserID string
	Bot    Bot

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	// Active workflow state. Data is the accumulated form data of the
	// in-progress workflow; it is discarded whenever the workflow ends.
	phase Phase
	step  string
	data  map[string]string

	// Credentials obtained during this session, reused across workflows.
	creds domain.Credentials

	// Registration guide position.
	guideIndex  int
	guideManual bool // automatable step degraded to manual handling

	automation  *AutomationSession
	lastRun     *stepResults
	attachments Attachments

	transcript []domain.ChatMessage
	recent     *MessageRing

	busy         bool
	lastActivity time.Time
}

// stepResults caches the most recent automation output so review and
// download replay it after the automation session itself is discarded.
type stepResults struct {
	step    *Step
	results *AutomationResults
}

// NewSession creates a fresh session for the given user and bot.
func NewSession(id, userID string, bot Bot) *Session {
	return &Session{
		ID:           id,
		UserID:       userID,
		Bot:          bot,
		entropy:      ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // message IDs are not security sensitive
		recent:       NewMessageRing(50),
		lastActivity: time.Now(),
	}
}

// lock acquires the session for one chat turn.
func (s *Session) lock() { s.mu.Lock() }

// unlock releases the session.
func (s *Session) unlock() { s.mu.Unlock() }

// touch records activity so the TTL sweeper keeps this session alive.
func (s *Session) touch() { s.lastActivity = time.Now() }

// IdleSince reports the last activity time. Used by the sweeper.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// append records a transcript entry and mirrors it into the recent ring.
func (s *Session) append(role, text string) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:   ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String(),
		Role: role,
		Text: text,
		Time: time.Now(),
	}
	s.transcript = append(s.transcript, msg)
	s.recent.Push(msg)
	return msg
}

// startWorkflow activates a workflow with a fresh data map. Any previous
// run's step data is discarded; cached credentials survive.
func (s *Session) startWorkflow(phase Phase, step string) {
	s.phase = phase
	s.step = step
	s.data = make(map[string]string)
	s.automation = nil
	s.lastRun = nil
}

// resetWorkflow clears all workflow state, returning the session to idle.
// Pending attachments are dropped too: they belong to the complaint that
// was being drafted.
func (s *Session) resetWorkflow() {
	s.phase = PhaseNone
	s.step = ""
	s.data = nil
	s.automation = nil
	s.guideManual = false
	s.attachments.Clear()
}

// Transcript returns a copy of the full message transcript.
func (s *Session) Transcript() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Attach stages an uploaded file for the complaint being drafted.
func (s *Session) Attach(f domain.UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.attachments.Accept(f)
}

// DetachByName removes the first staged file with the given name.
func (s *Session) DetachByName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.attachments.Remove(name)
}

// StagedFiles lists the files currently staged for submission.
func (s *Session) StagedFiles() []domain.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachments.List()
}
