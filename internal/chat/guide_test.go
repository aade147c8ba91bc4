package chat

import (
	"strings"
	"testing"
)

func startedGuide(t *testing.T, kn *fakeKnowledge) (*Controller, *Session) {
	t.Helper()
	c := newTestController(&fakeScores{}, kn)
	s := newTestSession(BotGuide)
	resp := say(t, c, s, "start")
	if !strings.Contains(resp.Text, "Step 1 of 8") {
		t.Fatalf("expected guide to start at step 1, got %q", resp.Text)
	}
	return c, s
}

func TestGuideNavigation(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})

	// Step 1 is automatable: "next" doesn't advance, it repeats the menu.
	resp := say(t, c, s, "next")
	if s.guideIndex != 0 {
		t.Fatalf("automatable step advanced on next, index = %d", s.guideIndex)
	}
	if !strings.Contains(resp.Text, "\"auto\"") {
		t.Fatalf("expected automation menu, got %q", resp.Text)
	}

	// Jump to step 5 (queries, plain), back to 4, and past the first step.
	resp = say(t, c, s, "5")
	if s.guideIndex != 4 || !strings.Contains(resp.Text, "Step 5 of 8") {
		t.Fatalf("jump failed: index %d, %q", s.guideIndex, resp.Text)
	}
	resp = say(t, c, s, "next")
	if s.guideIndex != 5 {
		t.Fatalf("plain step should advance on next, index = %d", s.guideIndex)
	}
	say(t, c, s, "back")
	if s.guideIndex != 4 {
		t.Fatalf("back failed, index = %d", s.guideIndex)
	}

	resp = say(t, c, s, "99")
	if !strings.Contains(resp.Text, "8 steps") {
		t.Fatalf("expected out-of-range message, got %q", resp.Text)
	}

	say(t, c, s, "restart")
	if s.guideIndex != 0 {
		t.Fatalf("restart failed, index = %d", s.guideIndex)
	}
	resp = say(t, c, s, "back")
	if !strings.Contains(resp.Text, "already at the first step") {
		t.Fatalf("expected first-step notice, got %q", resp.Text)
	}
}

func TestGuideManualStepNeedsDone(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})

	say(t, c, s, "4") // portal, manual
	resp := say(t, c, s, "next")
	if s.guideIndex != 3 {
		t.Fatalf("manual step advanced on next, index = %d", s.guideIndex)
	}
	if !strings.Contains(resp.Text, "\"done\"") {
		t.Fatalf("expected done menu, got %q", resp.Text)
	}
	say(t, c, s, "done")
	if s.guideIndex != 4 {
		t.Fatalf("done should advance a manual step, index = %d", s.guideIndex)
	}
}

func TestGuideManualDegradesAutomatableStep(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})

	// "done" on a pristine automatable step doesn't advance.
	say(t, c, s, "done")
	if s.guideIndex != 0 {
		t.Fatalf("done advanced an automatable step, index = %d", s.guideIndex)
	}

	resp := say(t, c, s, "manual")
	if !strings.Contains(resp.Text, "done") {
		t.Fatalf("expected manual-mode instructions, got %q", resp.Text)
	}
	say(t, c, s, "done")
	if s.guideIndex != 1 {
		t.Fatalf("done should advance after manual degrade, index = %d", s.guideIndex)
	}
	if s.guideManual {
		t.Fatal("manual mode should reset on advance")
	}
}

func TestGuideAutomationFlow(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})

	resp := say(t, c, s, "auto")
	if s.automation == nil {
		t.Fatal("expected automation session")
	}
	if !strings.Contains(resp.Text, "Which registration") {
		t.Fatalf("expected first question, got %q", resp.Text)
	}

	// Invalid answer re-asks with an error line.
	resp = say(t, c, s, "astronaut")
	if !strings.Contains(resp.Text, "⚠️") || !strings.Contains(resp.Text, "Which registration") {
		t.Fatalf("expected re-ask with error, got %q", resp.Text)
	}

	say(t, c, s, "Investment Adviser")
	say(t, c, s, "600000")
	say(t, c, s, "yes")
	resp = say(t, c, s, "no")
	if !strings.Contains(resp.Text, "automation complete") {
		t.Fatalf("expected results, got %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "Readiness score: 75/100") {
		t.Fatalf("expected 95/100 readiness, got %q", resp.Text)
	}

	// Review and download replay without advancing.
	resp = say(t, c, s, "review")
	if !strings.Contains(resp.Text, "Readiness score: 75/100") {
		t.Fatalf("review should replay results, got %q", resp.Text)
	}
	resp = say(t, c, s, "download")
	if !strings.Contains(resp.Text, "ACTION STEPS") {
		t.Fatalf("download should render a document, got %q", resp.Text)
	}
	if s.guideIndex != 0 {
		t.Fatalf("review/download must not advance, index = %d", s.guideIndex)
	}

	// Anything else moves on.
	say(t, c, s, "done")
	if s.automation != nil || s.guideIndex != 1 {
		t.Fatalf("expected advance to step 2, automation=%v index=%d", s.automation, s.guideIndex)
	}

	// Results stay reviewable from the next step.
	resp = say(t, c, s, "review")
	if !strings.Contains(resp.Text, "Readiness score: 75/100") {
		t.Fatalf("cached results should replay after advancing, got %q", resp.Text)
	}
}

func TestGuideQuestionFallsBackToKnowledge(t *testing.T) {
	t.Parallel()

	kn := &fakeKnowledge{answer: "Form A is the registration application."}
	c, s := startedGuide(t, kn)

	resp := say(t, c, s, "what exactly is form a?")
	if !strings.Contains(resp.Text, "Form A is the registration application.") {
		t.Fatalf("expected knowledge answer, got %q", resp.Text)
	}
	// The answer is followed by the current step's menu.
	if !strings.Contains(resp.Text, "\"auto\"") {
		t.Fatalf("expected step menu after answer, got %q", resp.Text)
	}
	if s.guideIndex != 0 {
		t.Fatalf("question must not move the walker, index = %d", s.guideIndex)
	}
}

func TestGuideCompletionClearsWorkflow(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})

	say(t, c, s, "8") // compliance, automatable
	say(t, c, s, "manual")
	resp := say(t, c, s, "done")
	if !strings.Contains(resp.Text, "completed the registration guide") {
		t.Fatalf("expected completion message, got %q", resp.Text)
	}
	if s.phase != PhaseNone {
		t.Fatalf("completion should clear the workflow, phase = %q", s.phase)
	}

	// The guide restarts cleanly afterwards.
	resp = say(t, c, s, "guide")
	if !strings.Contains(resp.Text, "Step 1 of 8") {
		t.Fatalf("expected fresh guide, got %q", resp.Text)
	}
}

func TestGuideReviewBeforeAnyRun(t *testing.T) {
	t.Parallel()

	c, s := startedGuide(t, &fakeKnowledge{})
	resp := say(t, c, s, "review")
	if !strings.Contains(resp.Text, "Nothing to review yet") {
		t.Fatalf("expected empty-review notice, got %q", resp.Text)
	}
}
