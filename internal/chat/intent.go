package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the classified purpose of a free-text utterance outside any
// active workflow.
type Intent int

const (
	// IntentNone means no workflow keyword matched; the utterance goes to
	// the knowledge-query collaborator.
	IntentNone Intent = iota
	// IntentRegister starts the SCORES registration workflow.
	IntentRegister
	// IntentComplaint starts the complaint filing workflow.
	IntentComplaint
	// IntentTrack starts the tracking workflow.
	IntentTrack
	// IntentEscalate starts the escalation workflow.
	IntentEscalate
	// IntentClose starts the closure workflow.
	IntentClose
	// IntentHelp shows the bot's help text.
	IntentHelp
)

// intentRule pairs an intent with the keywords that trigger it.
type intentRule struct {
	intent   Intent
	keywords []string
}

// intentRules is evaluated in order; the first rule with a matching keyword
// wins. Ordering is load-bearing: "register" matches before "complaint"
// even when an utterance mentions both ("register a complaint" starts
// registration), which keeps classification deterministic when keyword
// sets overlap.
var intentRules = []intentRule{
	{IntentRegister, []string{"register", "registration", "sign up", "signup", "create account", "new account"}},
	{IntentComplaint, []string{"complaint", "complain", "grievance", "lodge", "file a", "report issue", "fraud"}},
	{IntentTrack, []string{"track", "status", "check my", "follow up", "where is my"}},
	{IntentEscalate, []string{"escalate", "escalation", "not resolved", "no response", "higher authority"}},
	{IntentClose, []string{"close", "withdraw", "resolved", "satisfied"}},
	{IntentHelp, []string{"help", "what can you do", "commands", "options", "menu"}},
}

// Classify maps an utterance to an intent. Pure function over the
// lower-cased text; no match yields IntentNone.
func Classify(utterance string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if lowered == "" {
		return IntentNone
	}
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.intent
			}
		}
	}
	return IntentNone
}

// GuideCommand is a recognized registration-guide navigation command.
type GuideCommand int

const (
	// GuideQuestion means the input is not a command; treat it as a
	// question for the knowledge collaborator.
	GuideQuestion GuideCommand = iota
	// GuideNext advances to the next step.
	GuideNext
	// GuidePrev returns to the previous step.
	GuidePrev
	// GuideDone marks a manual step complete and advances.
	GuideDone
	// GuideAuto starts the step's automation sub-flow.
	GuideAuto
	// GuideManual degrades an automatable step to manual handling.
	GuideManual
	// GuideReview replays the last automation results.
	GuideReview
	// GuideDownload renders the last automation results as a document.
	GuideDownload
	// GuideRestart jumps back to the first step.
	GuideRestart
	// GuideJump jumps to the step number carried alongside.
	GuideJump
)

var guideCommands = map[string]GuideCommand{
	"next":     GuideNext,
	"continue": GuideNext,
	"previous": GuidePrev,
	"back":     GuidePrev,
	"prev":     GuidePrev,
	"done":     GuideDone,
	"complete": GuideDone,
	"auto":     GuideAuto,
	"automate": GuideAuto,
	"manual":   GuideManual,
	"review":   GuideReview,
	"download": GuideDownload,
	"restart":  GuideRestart,
}

var bareNumberPattern = regexp.MustCompile(`^\d{1,2}$`)

// ParseGuideCommand classifies guide-bot input. A bare step number returns
// (GuideJump, n); anything unrecognized returns GuideQuestion so the
// walker can forward it to the knowledge collaborator instead of silently
// re-prompting.
func ParseGuideCommand(utterance string) (GuideCommand, int) {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if cmd, ok := guideCommands[lowered]; ok {
		return cmd, 0
	}
	if bareNumberPattern.MatchString(lowered) {
		n, _ := strconv.Atoi(lowered)
		return GuideJump, n
	}
	return GuideQuestion, 0
}

// isCancel reports whether the utterance is a session-wide cancel command.
func isCancel(utterance string) bool {
	switch strings.ToLower(strings.TrimSpace(utterance)) {
	case "cancel", "stop", "quit", "exit":
		return true
	}
	return false
}

// isSkip reports whether the utterance is the skip/default sentinel.
func isSkip(utterance string) bool {
	switch strings.ToLower(strings.TrimSpace(utterance)) {
	case "skip", "default":
		return true
	}
	return false
}
