package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/scores"
)

// Step tags within the complaint-lifecycle phases. Auth steps are shared
// by every phase that needs credentials.
const (
	stepAuthUser     = "auth_user"
	stepAuthPassword = "auth_password"

	stepRegName   = "name"
	stepRegPAN    = "pan"
	stepRegEmail  = "email"
	stepRegMobile = "mobile"
	stepRegDOB    = "dob"

	stepEntity      = "entity"
	stepCategory    = "category"
	stepDescription = "description"
	stepFiles       = "files"

	stepComplaintID = "complaint_id"
	stepConfirm     = "confirm"
	stepFeedback    = "feedback"
)

// entityTypes is the fixed complaint entity menu, selectable by number or
// name.
var entityTypes = []string{
	"Stock Broker",
	"Depository Participant",
	"Mutual Fund",
	"Listed Company",
	"Investment Adviser",
	"Other Intermediary",
}

// entityCategories suggests complaint categories per entity type. The
// category step accepts arbitrary text; these only guide the user.
var entityCategories = map[string][]string{
	"Stock Broker":           {"Trading Issues", "Excess Brokerage", "Unauthorized Trades", "Fund Transfer Delay"},
	"Depository Participant": {"Demat Account Issues", "Transmission Delay", "Wrong Debit"},
	"Mutual Fund":            {"Redemption Delay", "NAV Dispute", "Mis-selling", "Dividend Not Received"},
	"Listed Company":         {"Dividend Not Received", "Share Transfer Delay", "Non-receipt of Annual Report"},
	"Investment Adviser":     {"Mis-selling", "Fee Dispute", "Unauthorized Advice"},
	"Other Intermediary":     {"Service Deficiency", "Fee Dispute", "Other"},
}

// statusDisplay maps a complaint status code to its display label.
var statusDisplay = map[string]string{
	domain.StatusSubmitted:     "Submitted 📋",
	domain.StatusUnderReview:   "Under Review 🔍",
	domain.StatusEscalatedL2:   "Escalated (L2) ⚠️",
	domain.StatusEscalatedSEBI: "Escalated to SEBI 🚨",
	domain.StatusResolved:      "Resolved ✅",
	domain.StatusClosed:        "Closed 🔒",
}

func displayStatus(code string) string {
	if label, ok := statusDisplay[code]; ok {
		return label
	}
	return fmt.Sprintf("Status: %s 📄", code)
}

// complaintIDPattern matches the SCORES complaint identifier format, used
// to pre-seed tracking/escalation/closure from quick-reply actions.
var complaintIDPattern = regexp.MustCompile(`SCR\d{14}[0-9A-Fa-f]{4}`)

// --- workflow starters ---

func (c *Controller) startRegistration(s *Session) Response {
	s.startWorkflow(PhaseRegistration, stepRegName)
	return Response{Text: "Let's create your SCORES account. I'll collect a few details.\n\nFirst, what is your full name?"}
}

func (c *Controller) startComplaintFiling(s *Session) Response {
	s.startWorkflow(PhaseComplaint, stepEntity)
	if !s.creds.Complete() {
		s.step = stepAuthUser
		return Response{Text: "To lodge a complaint I need your SCORES credentials.\n\nWhat is your user ID? (If you don't have one, say \"cancel\" and then \"register\".)"}
	}
	return Response{Text: c.entityMenu()}
}

func (c *Controller) startTracking(ctx context.Context, s *Session, utterance string) Response {
	s.startWorkflow(PhaseTracking, stepComplaintID)
	if id := complaintIDPattern.FindString(utterance); id != "" {
		s.data[stepComplaintID] = strings.ToUpper(id)
	}
	if !s.creds.Complete() {
		s.step = stepAuthUser
		return Response{Text: "To track a complaint I need your SCORES credentials.\n\nWhat is your user ID?"}
	}
	if s.data[stepComplaintID] != "" {
		return c.submitTracking(ctx, s)
	}
	return Response{Text: "Which complaint should I track? Please give the complaint ID (it starts with SCR)."}
}

func (c *Controller) startEscalation(s *Session, utterance string) Response {
	s.startWorkflow(PhaseEscalation, stepComplaintID)
	if id := complaintIDPattern.FindString(utterance); id != "" {
		s.data[stepComplaintID] = strings.ToUpper(id)
	}
	if !s.creds.Complete() {
		s.step = stepAuthUser
		return Response{Text: "To escalate a complaint I need your SCORES credentials.\n\nWhat is your user ID?"}
	}
	if s.data[stepComplaintID] != "" {
		s.step = stepConfirm
		return Response{Text: fmt.Sprintf("Escalate complaint %s to the next level? Reply \"yes\" to confirm or \"cancel\" to abort.", s.data[stepComplaintID])}
	}
	return Response{Text: "Which complaint should I escalate? Please give the complaint ID."}
}

func (c *Controller) startClosure(s *Session, utterance string) Response {
	s.startWorkflow(PhaseClosure, stepComplaintID)
	if id := complaintIDPattern.FindString(utterance); id != "" {
		s.data[stepComplaintID] = strings.ToUpper(id)
	}
	if !s.creds.Complete() {
		s.step = stepAuthUser
		return Response{Text: "To close a complaint I need your SCORES credentials.\n\nWhat is your user ID?"}
	}
	if s.data[stepComplaintID] != "" {
		s.step = stepFeedback
		return Response{Text: "Any feedback before I close it? Type your feedback, or \"skip\"."}
	}
	return Response{Text: "Which complaint should I close? Please give the complaint ID."}
}

// --- phase step handlers ---

// handleComplaintPhase routes one utterance to the active complaint
// lifecycle phase. Invalid input re-prompts the same step: in these
// workflows the utterance is the datum being collected.
func (c *Controller) handleComplaintPhase(ctx context.Context, s *Session, utterance string) Response {
	switch s.phase {
	case PhaseRegistration:
		return c.handleRegistration(ctx, s, utterance)
	case PhaseComplaint:
		return c.handleComplaint(ctx, s, utterance)
	case PhaseTracking:
		return c.handleTracking(ctx, s, utterance)
	case PhaseEscalation:
		return c.handleEscalation(ctx, s, utterance)
	case PhaseClosure:
		return c.handleClosure(ctx, s, utterance)
	default:
		s.resetWorkflow()
		return Response{Text: "Something went wrong with that workflow. Let's start over — how can I help?"}
	}
}

func (c *Controller) handleRegistration(ctx context.Context, s *Session, utterance string) Response {
	input := strings.TrimSpace(utterance)
	switch s.step {
	case stepRegName:
		if input == "" {
			return Response{Text: "I didn't catch that. What is your full name?"}
		}
		s.data["name"] = input
		s.step = stepRegPAN
		return Response{Text: "Thanks. What is your PAN? (10 characters, e.g. ABCDE1234F)"}
	case stepRegPAN:
		pan, ok := domain.NormalizePAN(input)
		if !ok {
			return Response{Text: "That doesn't look like a valid PAN — it must be exactly 10 characters (e.g. ABCDE1234F). Please try again."}
		}
		s.data["pan"] = pan
		s.step = stepRegEmail
		return Response{Text: "Got it. What is your email address?"}
	case stepRegEmail:
		if !domain.ValidEmail(input) {
			return Response{Text: "That doesn't look like a valid email address. Please try again (e.g. name@example.com)."}
		}
		s.data["email"] = input
		s.step = stepRegMobile
		return Response{Text: "And your 10-digit mobile number?"}
	case stepRegMobile:
		mobile, ok := domain.NormalizeMobile(input)
		if !ok {
			return Response{Text: "A mobile number needs exactly 10 digits. Please try again."}
		}
		s.data["mobile"] = mobile
		s.step = stepRegDOB
		return Response{Text: "Last one: your date of birth in DD/MM/YYYY format."}
	case stepRegDOB:
		if !domain.ValidDOB(input) {
			return Response{Text: "Please use the DD/MM/YYYY format, e.g. 01/01/1990."}
		}
		s.data["dob"] = input
		return c.submitRegistration(ctx, s)
	default:
		s.resetWorkflow()
		return Response{Text: "Registration got into an unexpected state; I've reset it. Say \"register\" to start again."}
	}
}

func (c *Controller) submitRegistration(ctx context.Context, s *Session) Response {
	name, pan := s.data["name"], s.data["pan"]
	email, mobile, dob := s.data["email"], s.data["mobile"], s.data["dob"]

	var result *scores.RegisterResult
	err := c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.scores.Register(callCtx, name, pan, email, mobile, dob)
		return callErr
	})
	s.resetWorkflow()
	if err != nil {
		return Response{Text: "Registration failed: " + collaboratorMessage(err) + "\nSay \"register\" to try again."}
	}

	s.creds = domain.Credentials{UserID: result.UserID, Password: result.Password}
	return Response{
		Text: fmt.Sprintf("🎉 Registration successful!\n\nUser ID: %s\nPassword: %s\n\n"+
			"Save these now — the password is shown only once.", result.UserID, result.Password),
		Replies: []domain.QuickReply{{Label: "File a complaint now", Action: "file a complaint"}},
	}
}

func (c *Controller) handleComplaint(ctx context.Context, s *Session, utterance string) Response {
	input := strings.TrimSpace(utterance)
	switch s.step {
	case stepAuthUser:
		if input == "" {
			return Response{Text: "Please give your SCORES user ID."}
		}
		s.data[stepAuthUser] = input
		s.step = stepAuthPassword
		return Response{Text: "And your password?"}
	case stepAuthPassword:
		if input == "" {
			return Response{Text: "Please give your SCORES password."}
		}
		s.creds = domain.Credentials{UserID: s.data[stepAuthUser], Password: input}
		delete(s.data, stepAuthUser)
		s.step = stepEntity
		return Response{Text: c.entityMenu()}
	case stepEntity:
		entity, ok := matchEntityType(input)
		if !ok {
			return Response{Text: "Please pick one of the listed entity types, by number or name.\n\n" + c.entityMenu() +
				"\n(You can also ask me a free question any time.)"}
		}
		s.data["entity_type"] = entity
		s.step = stepCategory
		return Response{Text: fmt.Sprintf("What is the complaint about? Common categories for a %s:\n%s\n\nType a category (or describe your own).",
			entity, bulleted(entityCategories[entity]))}
	case stepCategory:
		if input == "" {
			return Response{Text: "Please give a complaint category, e.g. \"Trading Issues\"."}
		}
		s.data["category"] = input
		s.step = stepDescription
		return Response{Text: "Describe what happened, with dates and amounts where relevant."}
	case stepDescription:
		if input == "" {
			return Response{Text: "Please describe the issue — a sentence or two is enough."}
		}
		s.data["description"] = input
		s.step = stepFiles
		return Response{Text: fmt.Sprintf("You can attach supporting documents (up to %d files, %d MB each) using the attach button.\n\n"+
			"Reply \"submit\" to lodge the complaint, or \"skip\" to lodge it without attachments.",
			MaxAttachments, MaxAttachmentBytes>>20)}
	case stepFiles:
		switch strings.ToLower(input) {
		case "submit", "skip", "":
			if strings.EqualFold(input, "skip") {
				s.attachments.Clear()
			}
			return c.submitComplaint(ctx, s)
		default:
			n := s.attachments.Len()
			return Response{Text: fmt.Sprintf("%d file(s) attached so far. Reply \"submit\" to lodge the complaint or \"skip\" to drop the attachments.", n)}
		}
	default:
		s.resetWorkflow()
		return Response{Text: "The complaint workflow got into an unexpected state; I've reset it. Say \"complaint\" to start again."}
	}
}

func (c *Controller) submitComplaint(ctx context.Context, s *Session) Response {
	entity, category, description := s.data["entity_type"], s.data["category"], s.data["description"]
	files := s.attachments.List()
	creds := s.creds

	var complaintID string
	err := c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		var callErr error
		complaintID, callErr = c.scores.Lodge(callCtx, creds, entity, category, description, files)
		return callErr
	})
	// The staged attachments belong to this submission attempt; clear them
	// on failure as well.
	s.resetWorkflow()
	if err != nil {
		return Response{Text: "Could not lodge the complaint: " + collaboratorMessage(err) + "\nSay \"complaint\" to try again."}
	}

	return Response{
		Text: fmt.Sprintf("✅ Complaint lodged successfully!\n\nComplaint ID: %s\n\n"+
			"The entity has 21 days to respond. You can track progress any time.", complaintID),
		Replies: []domain.QuickReply{{Label: "Track this complaint", Action: "track " + complaintID}},
	}
}

func (c *Controller) handleTracking(ctx context.Context, s *Session, utterance string) Response {
	input := strings.TrimSpace(utterance)
	switch s.step {
	case stepAuthUser:
		if input == "" {
			return Response{Text: "Please give your SCORES user ID."}
		}
		s.data[stepAuthUser] = input
		s.step = stepAuthPassword
		return Response{Text: "And your password?"}
	case stepAuthPassword:
		if input == "" {
			return Response{Text: "Please give your SCORES password."}
		}
		s.creds = domain.Credentials{UserID: s.data[stepAuthUser], Password: input}
		delete(s.data, stepAuthUser)
		s.step = stepComplaintID
		if s.data[stepComplaintID] != "" {
			return c.submitTracking(ctx, s)
		}
		return Response{Text: "Which complaint should I track? Please give the complaint ID."}
	case stepComplaintID:
		id := complaintIDPattern.FindString(input)
		if id == "" {
			return Response{Text: "That doesn't look like a complaint ID — it starts with SCR followed by digits. Please try again."}
		}
		s.data[stepComplaintID] = strings.ToUpper(id)
		return c.submitTracking(ctx, s)
	default:
		s.resetWorkflow()
		return Response{Text: "Tracking got into an unexpected state; I've reset it. Say \"track\" to start again."}
	}
}

func (c *Controller) submitTracking(ctx context.Context, s *Session) Response {
	complaintID := s.data[stepComplaintID]
	creds := s.creds

	var tracked *scores.TrackedComplaint
	err := c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		var callErr error
		tracked, callErr = c.scores.Track(callCtx, creds, complaintID)
		return callErr
	})
	s.resetWorkflow()
	if err != nil {
		return Response{Text: "Could not track the complaint: " + collaboratorMessage(err) + "\nSay \"track\" to try again."}
	}

	return renderTrackedComplaint(tracked)
}

// renderTrackedComplaint formats a tracked complaint and derives the
// follow-up actions: escalation opens on day 15 while the complaint is
// still submitted or under review; closing is offered unless the
// complaint is already resolved or closed.
func renderTrackedComplaint(tc *scores.TrackedComplaint) Response {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Complaint %s\n\n", tc.ComplaintID)
	fmt.Fprintf(&b, "Status: %s\n", displayStatus(tc.Status))
	fmt.Fprintf(&b, "Entity: %s\nCategory: %s\n", tc.EntityType, tc.Category)
	fmt.Fprintf(&b, "Filed: %s (%d days ago)\n", tc.CreatedAt, tc.DaysElapsed)
	fmt.Fprintf(&b, "Escalation level: %d\n", tc.EscalationLevel)

	if len(tc.Reminders) > 0 {
		b.WriteString("\nReminders:\n")
		for _, reminder := range tc.Reminders {
			fmt.Fprintf(&b, "• %s\n", reminder)
		}
	}

	var replies []domain.QuickReply
	if domain.EscalationAvailable(tc.Status, tc.DaysElapsed) {
		replies = append(replies, domain.QuickReply{Label: "Escalate", Action: "escalate " + tc.ComplaintID})
	}
	if domain.ClosureAvailable(tc.Status) {
		replies = append(replies, domain.QuickReply{Label: "Close complaint", Action: "close " + tc.ComplaintID})
	}

	return Response{Text: strings.TrimRight(b.String(), "\n"), Replies: replies}
}

func (c *Controller) handleEscalation(ctx context.Context, s *Session, utterance string) Response {
	input := strings.TrimSpace(utterance)
	switch s.step {
	case stepAuthUser:
		if input == "" {
			return Response{Text: "Please give your SCORES user ID."}
		}
		s.data[stepAuthUser] = input
		s.step = stepAuthPassword
		return Response{Text: "And your password?"}
	case stepAuthPassword:
		if input == "" {
			return Response{Text: "Please give your SCORES password."}
		}
		s.creds = domain.Credentials{UserID: s.data[stepAuthUser], Password: input}
		delete(s.data, stepAuthUser)
		s.step = stepComplaintID
		if s.data[stepComplaintID] != "" {
			s.step = stepConfirm
			return Response{Text: fmt.Sprintf("Escalate complaint %s to the next level? Reply \"yes\" to confirm.", s.data[stepComplaintID])}
		}
		return Response{Text: "Which complaint should I escalate? Please give the complaint ID."}
	case stepComplaintID:
		id := complaintIDPattern.FindString(input)
		if id == "" {
			return Response{Text: "That doesn't look like a complaint ID. Please try again."}
		}
		s.data[stepComplaintID] = strings.ToUpper(id)
		s.step = stepConfirm
		return Response{Text: fmt.Sprintf("Escalate complaint %s to the next level? Reply \"yes\" to confirm.", s.data[stepComplaintID])}
	case stepConfirm:
		if !strings.EqualFold(input, "yes") && !strings.EqualFold(input, "y") {
			return Response{Text: "Reply \"yes\" to escalate, or \"cancel\" to abort."}
		}
		return c.submitEscalation(ctx, s)
	default:
		s.resetWorkflow()
		return Response{Text: "Escalation got into an unexpected state; I've reset it. Say \"escalate\" to start again."}
	}
}

func (c *Controller) submitEscalation(ctx context.Context, s *Session) Response {
	complaintID := s.data[stepComplaintID]
	creds := s.creds

	var result *scores.EscalateResult
	err := c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.scores.Escalate(callCtx, creds, complaintID)
		return callErr
	})
	s.resetWorkflow()
	if err != nil {
		return Response{Text: "Could not escalate the complaint: " + collaboratorMessage(err) + "\nSay \"escalate\" to try again."}
	}

	return Response{
		Text: fmt.Sprintf("⚠️ Complaint %s escalated.\n\nNew level: %d\nStatus: %s",
			complaintID, result.EscalationLevel, displayStatus(result.Status)),
		Replies: []domain.QuickReply{{Label: "Track this complaint", Action: "track " + complaintID}},
	}
}

func (c *Controller) handleClosure(ctx context.Context, s *Session, utterance string) Response {
	input := strings.TrimSpace(utterance)
	switch s.step {
	case stepAuthUser:
		if input == "" {
			return Response{Text: "Please give your SCORES user ID."}
		}
		s.data[stepAuthUser] = input
		s.step = stepAuthPassword
		return Response{Text: "And your password?"}
	case stepAuthPassword:
		if input == "" {
			return Response{Text: "Please give your SCORES password."}
		}
		s.creds = domain.Credentials{UserID: s.data[stepAuthUser], Password: input}
		delete(s.data, stepAuthUser)
		s.step = stepComplaintID
		if s.data[stepComplaintID] != "" {
			s.step = stepFeedback
			return Response{Text: "Any feedback before I close it? Type your feedback, or \"skip\"."}
		}
		return Response{Text: "Which complaint should I close? Please give the complaint ID."}
	case stepComplaintID:
		id := complaintIDPattern.FindString(input)
		if id == "" {
			return Response{Text: "That doesn't look like a complaint ID. Please try again."}
		}
		s.data[stepComplaintID] = strings.ToUpper(id)
		s.step = stepFeedback
		return Response{Text: "Any feedback before I close it? Type your feedback, or \"skip\"."}
	case stepFeedback:
		if !isSkip(input) {
			s.data[stepFeedback] = input
		}
		return c.submitClosure(ctx, s)
	default:
		s.resetWorkflow()
		return Response{Text: "Closure got into an unexpected state; I've reset it. Say \"close\" to start again."}
	}
}

func (c *Controller) submitClosure(ctx context.Context, s *Session) Response {
	complaintID := s.data[stepComplaintID]
	feedback := s.data[stepFeedback]
	creds := s.creds

	var result *scores.CloseResult
	err := c.callCollaborator(ctx, s, func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.scores.CloseComplaint(callCtx, creds, complaintID, feedback)
		return callErr
	})
	s.resetWorkflow()
	if err != nil {
		return Response{Text: "Could not close the complaint: " + collaboratorMessage(err) + "\nSay \"close\" to try again."}
	}

	return Response{Text: fmt.Sprintf("🔒 Complaint %s closed (%s). Thank you for using SCORES.",
		complaintID, displayStatus(result.Status))}
}

// --- helpers ---

func (c *Controller) entityMenu() string {
	var b strings.Builder
	b.WriteString("Which type of entity is the complaint against?\n\n")
	for i, entity := range entityTypes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, entity)
	}
	b.WriteString("\nReply with the number or the name.")
	return b.String()
}

// matchEntityType resolves a menu selection by number or case-insensitive
// name containment.
func matchEntityType(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n >= 1 && n <= len(entityTypes) {
			return entityTypes[n-1], true
		}
		return "", false
	}
	lowered := strings.ToLower(trimmed)
	for _, entity := range entityTypes {
		if strings.Contains(lowered, strings.ToLower(entity)) || strings.Contains(strings.ToLower(entity), lowered) {
			return entity, true
		}
	}
	return "", false
}

func bulleted(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "• %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// collaboratorMessage extracts a user-safe message from a collaborator
// error. Explicit API failures carry their own message; transport errors
// get a generic line.
func collaboratorMessage(err error) string {
	var apiErr *scores.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "the service is unreachable right now. Please try again in a moment."
}
