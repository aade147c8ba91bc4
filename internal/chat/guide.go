package chat

import (
	"context"
	"fmt"
	"strings"
)

// startGuide activates the registration guide at its first step.
func (c *Controller) startGuide(s *Session) Response {
	s.startWorkflow(PhaseGuide, "")
	s.guideIndex = 0
	s.guideManual = false
	return Response{Text: "Welcome to the SEBI intermediary registration guide. " +
		"Eight steps take you from eligibility to post-registration compliance.\n\n" +
		renderStep(s.guideIndex, false)}
}

// handleGuide routes one utterance while the guide is active. Recognized
// commands drive navigation; anything else is treated as a question and
// forwarded to the knowledge collaborator, then the current step menu is
// repeated. The guide never silently re-prompts: its steps are
// navigational, so free text is always a question.
func (c *Controller) handleGuide(ctx context.Context, s *Session, utterance string) Response {
	if s.automation != nil {
		return c.handleAutomation(s, utterance)
	}

	step := &guideSteps[s.guideIndex]
	cmd, n := ParseGuideCommand(utterance)

	switch cmd {
	case GuideNext:
		if step.Kind != StepPlain {
			return Response{Text: stepMenu(step, s.guideManual)}
		}
		return c.guideAdvance(s)
	case GuideDone:
		if step.Kind == StepAutomatable && !s.guideManual {
			return Response{Text: stepMenu(step, s.guideManual)}
		}
		return c.guideAdvance(s)
	case GuidePrev:
		if s.guideIndex == 0 {
			return Response{Text: "You're already at the first step.\n\n" + renderStep(0, s.guideManual)}
		}
		s.guideIndex--
		s.guideManual = false
		return Response{Text: renderStep(s.guideIndex, false)}
	case GuideAuto:
		if step.Kind != StepAutomatable {
			return Response{Text: "This step has no automation.\n\n" + stepMenu(step, s.guideManual)}
		}
		s.automation = NewAutomationSession(step)
		q := s.automation.Current()
		return Response{Text: fmt.Sprintf("🤖 %s\n\n%s", step.AutomationNote, renderQuestion(q, ""))}
	case GuideManual:
		if step.Kind != StepAutomatable {
			return Response{Text: "This step is already handled manually.\n\n" + stepMenu(step, s.guideManual)}
		}
		s.guideManual = true
		return Response{Text: fmt.Sprintf("Alright, handle \"%s\" yourself. Reply \"done\" when finished.", step.Title)}
	case GuideReview:
		if res := s.lastRun; res != nil {
			return Response{Text: renderResults(res.step, res.results)}
		}
		return Response{Text: "Nothing to review yet — run an automation first with \"auto\".\n\n" + stepMenu(step, s.guideManual)}
	case GuideDownload:
		if res := s.lastRun; res != nil {
			return Response{Text: renderResultsDocument(res.step, res.results)}
		}
		return Response{Text: "Nothing to download yet — run an automation first with \"auto\".\n\n" + stepMenu(step, s.guideManual)}
	case GuideRestart:
		s.guideIndex = 0
		s.guideManual = false
		return Response{Text: "Starting over from step 1.\n\n" + renderStep(0, false)}
	case GuideJump:
		if n < 1 || n > len(guideSteps) {
			return Response{Text: fmt.Sprintf("There are %d steps — pick a number in that range.", len(guideSteps))}
		}
		s.guideIndex = n - 1
		s.guideManual = false
		return Response{Text: renderStep(s.guideIndex, false)}
	default:
		// A question: answer it inline, then repeat where we are.
		resp := c.askKnowledge(ctx, s, utterance)
		resp.Text += "\n\n---\n" + stepMenu(step, s.guideManual)
		return resp
	}
}

// guideAdvance moves past the current step; walking off the end completes
// the guide and clears the workflow.
func (c *Controller) guideAdvance(s *Session) Response {
	s.guideManual = false
	if s.guideIndex+1 >= len(guideSteps) {
		s.resetWorkflow()
		return Response{Text: "🎓 That's all eight steps — you've completed the registration guide!\n\n" +
			"Good luck with your application. Say \"guide\" to walk through it again, or ask me anything."}
	}
	s.guideIndex++
	return Response{Text: renderStep(s.guideIndex, false)}
}

// handleAutomation routes one utterance into the active automation
// sub-flow.
func (c *Controller) handleAutomation(s *Session, utterance string) Response {
	a := s.automation
	if !a.Completed {
		q := a.Current()
		if err := a.SubmitAnswer(utterance); err != nil {
			return Response{Text: renderQuestion(q, "⚠️ "+err.Error())}
		}
		if next := a.Current(); next != nil {
			return Response{Text: renderQuestion(next, "")}
		}
		// Last answer accepted: synthesize and present the results.
		res := a.GenerateResults()
		s.lastRun = &stepResults{step: a.Step, results: res}
		return Response{Text: renderResults(a.Step, res)}
	}

	// Results shown; accept review/download/done here too.
	switch cmd, _ := ParseGuideCommand(utterance); cmd {
	case GuideReview:
		return Response{Text: renderResults(a.Step, a.GenerateResults())}
	case GuideDownload:
		return Response{Text: renderResultsDocument(a.Step, a.GenerateResults())}
	default:
		s.automation = nil
		return c.guideAdvance(s)
	}
}

// renderStep formats a guide step with its description, documents, tips,
// and the command menu for its kind.
func renderStep(index int, manualMode bool) string {
	step := &guideSteps[index]
	var b strings.Builder
	fmt.Fprintf(&b, "📍 Step %d of %d: %s\n\n%s\n\n", index+1, len(guideSteps), step.Title, step.Description)
	fmt.Fprintf(&b, "What to do: %s\n", step.Action)

	if len(step.Documents) > 0 {
		b.WriteString("\nDocuments you'll need:\n")
		for _, doc := range step.Documents {
			fmt.Fprintf(&b, "• %s\n", doc)
		}
	}
	if len(step.Tips) > 0 {
		b.WriteString("\nTips:\n")
		for _, tip := range step.Tips {
			fmt.Fprintf(&b, "💡 %s\n", tip)
		}
	}

	b.WriteString("\n" + stepMenu(step, manualMode))
	return b.String()
}

// stepMenu renders the commands available for a step's kind.
func stepMenu(step *Step, manualMode bool) string {
	switch {
	case step.Kind == StepAutomatable && !manualMode:
		return "Reply \"auto\" to let me handle this step with you, \"manual\" to do it yourself, or \"back\" for the previous step. Ask me anything about it too."
	case step.Kind == StepManual || manualMode:
		return "Reply \"done\" once you've completed this step, or \"back\" for the previous step. Ask me anything about it too."
	default:
		return "Reply \"next\" to continue, or \"back\" for the previous step. Ask me anything about it too."
	}
}

// renderQuestion formats an automation question, optionally preceded by an
// error line when re-asking.
func renderQuestion(q *Question, errorLine string) string {
	var b strings.Builder
	if errorLine != "" {
		b.WriteString(errorLine + "\n\n")
	}
	b.WriteString(q.Label + "\n")
	if q.Description != "" {
		b.WriteString(q.Description + "\n")
	}
	if len(q.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(q.Options, " / "))
	}
	if q.Tip != "" {
		fmt.Fprintf(&b, "💡 %s\n", q.Tip)
	}
	b.WriteString("(Reply \"skip\" to use a sensible default.)")
	return b.String()
}
