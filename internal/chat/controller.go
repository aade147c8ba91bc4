package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// Controller drives both bots' conversations. It is stateless itself:
// all per-conversation state lives on the Session, so one controller
// serves every session in the process.
type Controller struct {
	scores    ComplaintService
	knowledge KnowledgeService
	log       ConversationLogger
	timeout   time.Duration
}

// NewController creates a controller. logger may be nil, in which case
// conversation logging is disabled.
func NewController(scoresClient ComplaintService, knowledgeClient KnowledgeService, logger ConversationLogger, timeout time.Duration) *Controller {
	if logger == nil {
		logger = noopConversationLogger{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Controller{
		scores:    scoresClient,
		knowledge: knowledgeClient,
		log:       logger,
		timeout:   timeout,
	}
}

// Handle processes one user utterance and produces the assistant's reply.
// Every utterance is answered: global commands first, then the active
// workflow's step handler, then intent classification, with the
// knowledge collaborator as the final fallback. Both sides of the turn
// are appended to the session transcript.
func (c *Controller) Handle(ctx context.Context, s *Session, utterance string, channel string) Response {
	s.lock()
	defer s.unlock()
	s.touch()

	// At most one outstanding collaborator call per session. The busy
	// flag is set while the lock is released around a network call.
	if s.busy {
		return Response{Text: "⏳ I'm still working on your previous request — one moment."}
	}

	userMsg := s.append(domain.RoleUser, utterance)
	c.logTurn(s, channel, "inbound", "user_message", userMsg.ID, utterance)

	resp := c.dispatch(ctx, s, utterance)

	replyMsg := s.append(domain.RoleAssistant, resp.Text)
	c.logTurn(s, channel, "outbound", "assistant_message", replyMsg.ID, resp.Text)
	return resp
}

func (c *Controller) dispatch(ctx context.Context, s *Session, utterance string) Response {
	trimmed := strings.TrimSpace(utterance)

	// Global commands work everywhere, including mid-workflow.
	if isCancel(trimmed) {
		if s.phase == PhaseNone {
			return Response{Text: "Nothing to cancel. " + c.helpText(s.Bot)}
		}
		s.resetWorkflow()
		return Response{Text: "Okay, cancelled. Your progress in that workflow has been discarded. How else can I help?"}
	}
	switch strings.ToLower(trimmed) {
	case "help":
		return Response{Text: c.helpText(s.Bot)}
	case "history":
		return Response{Text: renderHistory(s.recent.Messages())}
	}

	if s.automation != nil {
		return c.handleAutomation(s, utterance)
	}
	if s.phase == PhaseGuide {
		return c.handleGuide(ctx, s, utterance)
	}
	if s.phase != PhaseNone {
		return c.handleComplaintPhase(ctx, s, utterance)
	}

	return c.handleIdle(ctx, s, utterance)
}

// handleIdle classifies a free-text utterance when no workflow is active.
func (c *Controller) handleIdle(ctx context.Context, s *Session, utterance string) Response {
	if s.Bot == BotGuide {
		// The guide bot has a single workflow; anything that looks like a
		// start command enters it, everything else is a question.
		lowered := strings.ToLower(utterance)
		if strings.Contains(lowered, "start") || strings.Contains(lowered, "guide") ||
			strings.Contains(lowered, "begin") || Classify(utterance) == IntentRegister {
			return c.startGuide(s)
		}
		return c.askKnowledge(ctx, s, utterance)
	}

	switch Classify(utterance) {
	case IntentRegister:
		return c.startRegistration(s)
	case IntentComplaint:
		return c.startComplaintFiling(s)
	case IntentTrack:
		return c.startTracking(ctx, s, utterance)
	case IntentEscalate:
		return c.startEscalation(s, utterance)
	case IntentClose:
		return c.startClosure(s, utterance)
	case IntentHelp:
		return Response{Text: c.helpText(s.Bot)}
	default:
		return c.askKnowledge(ctx, s, utterance)
	}
}

// askKnowledge forwards a question to the knowledge collaborator. The
// client never fails: an unreachable collaborator yields a canned answer.
func (c *Controller) askKnowledge(ctx context.Context, s *Session, question string) Response {
	var ans domain.Answer
	_ = c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		ans = c.knowledge.Ask(callCtx, question)
		return nil
	})

	text := ans.Text
	if len(ans.Sources) > 0 {
		var b strings.Builder
		b.WriteString(text + "\n\nSources:\n")
		for i, src := range ans.Sources {
			if i >= 3 {
				break
			}
			if src.Year > 0 {
				fmt.Fprintf(&b, "• %s (%d)\n", src.DocType, src.Year)
			} else {
				fmt.Fprintf(&b, "• %s\n", src.DocType)
			}
		}
		text = strings.TrimRight(b.String(), "\n")
	}
	return Response{Text: text}
}

// callCollaborator runs fn with the session lock released and the busy
// flag set, bounding the call with the configured timeout. Concurrent
// turns observe busy and get the still-working notice instead of starting
// a second call.
func (c *Controller) callCollaborator(ctx context.Context, s *Session, fn func(ctx context.Context) error) error {
	s.busy = true
	s.unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := fn(callCtx)
	cancel()

	s.lock()
	s.busy = false
	return err
}

func (c *Controller) helpText(bot Bot) string {
	if bot == BotGuide {
		return "I walk you through SEBI intermediary registration, step by step.\n\n" +
			"• \"start\" — begin (or resume) the eight-step guide\n" +
			"• \"next\" / \"back\" / a step number — move around\n" +
			"• \"auto\" — let me handle an automatable step with you\n" +
			"• \"history\" — recent conversation\n" +
			"• \"cancel\" — leave the guide\n\n" +
			"You can also ask me any question about SEBI regulations at any time."
	}
	return "I help you with SEBI complaints through SCORES.\n\n" +
		"• \"register\" — create a SCORES account\n" +
		"• \"complaint\" — lodge a new complaint\n" +
		"• \"track\" — check a complaint's status\n" +
		"• \"escalate\" — push a stalled complaint up a level\n" +
		"• \"close\" — close a complaint\n" +
		"• \"history\" — recent conversation\n" +
		"• \"cancel\" — abandon the current workflow\n\n" +
		"You can also ask me any question about SEBI regulations at any time."
}

// renderHistory formats the recent-message ring for the history command.
func renderHistory(msgs []domain.ChatMessage) string {
	if len(msgs) == 0 {
		return "No conversation history yet."
	}
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, m := range msgs {
		who := "You"
		if m.Role == domain.RoleAssistant {
			who = "Saathi"
		}
		text := m.Text
		if runes := []rune(text); len(runes) > 120 {
			text = string(runes[:117]) + "..."
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Time.Format("15:04"), who, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// logTurn emits one conversation-log event. Logging never blocks or fails
// a turn.
func (c *Controller) logTurn(s *Session, channel, direction, eventType, messageID, content string) {
	c.log.Log(ConversationLogEvent{
		UserID:     s.UserID,
		SessionID:  s.ID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta: map[string]interface{}{
			"bot":        string(s.Bot),
			"message_id": messageID,
			"phase":      string(s.phase),
		},
	})
}
