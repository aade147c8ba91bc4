package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// answerDefault is the sentinel stored when the user skips a question.
// Generators resolve it to a per-field default.
const answerDefault = "default"

// AutomationResults is the synthesized output of a completed automation
// run: deterministic template rendering over the collected answers.
type AutomationResults struct {
	Results      []string
	Deliverables string
	ActionSteps  []string
}

// AutomationSession is the transient question/answer sub-state nested
// inside a guide workflow run. It lives only while its step is active, but
// the generated results stay cached for review/download replay.
type AutomationSession struct {
	Step      *Step
	Index     int
	Answers   map[string]string
	Completed bool
	Results   *AutomationResults
}

// NewAutomationSession starts the automation sub-flow for a step.
func NewAutomationSession(step *Step) *AutomationSession {
	return &AutomationSession{
		Step:    step,
		Answers: make(map[string]string),
	}
}

// Current returns the question awaiting an answer, or nil when done.
func (a *AutomationSession) Current() *Question {
	if a.Index >= len(a.Step.Questions) {
		return nil
	}
	return &a.Step.Questions[a.Index]
}

// SubmitAnswer validates and stores the answer to the current question.
// A skip sentinel stores "default" without validation. Invalid input
// returns an error and leaves the question index unchanged; the caller
// re-asks the same question with the error line.
func (a *AutomationSession) SubmitAnswer(raw string) error {
	q := a.Current()
	if q == nil {
		return fmt.Errorf("no question pending")
	}

	if isSkip(raw) {
		a.Answers[q.Field] = answerDefault
		a.advance()
		return nil
	}

	trimmed := strings.TrimSpace(raw)
	switch q.Kind {
	case QuestionNumeric:
		digits := keepDigits(trimmed)
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("please give a positive number, or reply \"skip\"")
		}
		a.Answers[q.Field] = digits
	case QuestionClosed:
		matched := ""
		for _, opt := range q.Options {
			if strings.Contains(strings.ToLower(trimmed), strings.ToLower(opt)) ||
				strings.Contains(strings.ToLower(opt), strings.ToLower(trimmed)) {
				matched = opt
				break
			}
		}
		if matched == "" || trimmed == "" {
			return fmt.Errorf("please pick one of: %s (or reply \"skip\")", strings.Join(q.Options, ", "))
		}
		a.Answers[q.Field] = matched
	default:
		if trimmed == "" {
			return fmt.Errorf("please type an answer, or reply \"skip\"")
		}
		a.Answers[q.Field] = trimmed
	}

	a.advance()
	return nil
}

func (a *AutomationSession) advance() {
	a.Index++
	if a.Index >= len(a.Step.Questions) {
		a.Completed = true
	}
}

// GenerateResults synthesizes the step's results from the collected
// answers. Results are cached so review/download replay without
// recomputation.
func (a *AutomationSession) GenerateResults() *AutomationResults {
	if a.Results != nil {
		return a.Results
	}
	a.Results = generateStepResults(a.Step.ID, a.Answers)
	return a.Results
}

// answer resolves a collected answer, substituting fallback for the skip
// sentinel and missing fields.
func answer(answers map[string]string, field, fallback string) string {
	v, ok := answers[field]
	if !ok || v == answerDefault || v == "" {
		return fallback
	}
	return v
}

// numericAnswer resolves a numeric answer, substituting fallback for
// skipped or unparseable values.
func numericAnswer(answers map[string]string, field string, fallback int64) int64 {
	v, ok := answers[field]
	if !ok || v == answerDefault {
		return fallback
	}
	n, err := strconv.ParseInt(keepDigits(v), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}
