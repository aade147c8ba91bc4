package chat

import (
	"fmt"
	"strings"
)

// generateStepResults dispatches to the step's template function. Pure
// synthesis over the answers map: no external calls, no randomness.
func generateStepResults(stepID string, answers map[string]string) *AutomationResults {
	switch stepID {
	case "eligibility":
		return eligibilityResults(answers)
	case "documents":
		return documentsResults(answers)
	case "application":
		return applicationResults(answers)
	case "compliance":
		return complianceResults(answers)
	default:
		// Steps without a generator shouldn't be automatable; return a
		// plain echo of the answers so the flow still completes.
		out := &AutomationResults{Deliverables: "Collected answers"}
		for field, value := range answers {
			out.Results = append(out.Results, fmt.Sprintf("%s: %s", field, value))
		}
		return out
	}
}

// readinessScore computes the weighted eligibility score: net worth at or
// above the category threshold is worth 40 points (20 for at least half),
// a valid certification 35, exchange membership 25, capped at 100.
func readinessScore(regType string, netWorth int64, certified, member bool) int {
	threshold := registrationThresholds[regType]
	score := 0
	switch {
	case threshold > 0 && netWorth >= threshold:
		score += 40
	case threshold > 0 && netWorth >= threshold/2:
		score += 20
	}
	if certified {
		score += 35
	}
	if member {
		score += 25
	}
	if score > 100 {
		score = 100
	}
	return score
}

func eligibilityResults(answers map[string]string) *AutomationResults {
	regType := answer(answers, "registration_type", "Investment Adviser")
	netWorth := numericAnswer(answers, "net_worth", 0)
	certified := isYes(answer(answers, "certification", "No"))
	member := isYes(answer(answers, "exchange_membership", "No"))

	threshold := registrationThresholds[regType]
	score := readinessScore(regType, netWorth, certified, member)

	verdict := "You have significant gaps to close before applying."
	switch {
	case score >= 80:
		verdict = "You look ready to apply."
	case score >= 50:
		verdict = "You are close — close the gaps below before applying."
	}

	results := []string{
		fmt.Sprintf("Registration type: %s", regType),
		fmt.Sprintf("Required net worth: ₹%s", formatRupees(threshold)),
		fmt.Sprintf("Your net worth: ₹%s", formatRupees(netWorth)),
		fmt.Sprintf("Readiness score: %d/100", score),
		verdict,
	}

	var gaps []string
	if netWorth < threshold {
		gaps = append(gaps, fmt.Sprintf("Raise net worth by ₹%s to meet the %s requirement.", formatRupees(threshold-netWorth), regType))
	}
	if !certified {
		gaps = append(gaps, "Obtain the relevant NISM/NCFM certification.")
	}
	if !member {
		gaps = append(gaps, "Evaluate whether your category requires a stock exchange membership.")
	}
	if len(gaps) == 0 {
		gaps = append(gaps, "No gaps found — proceed to document preparation.")
	}

	return &AutomationResults{
		Results:      results,
		Deliverables: fmt.Sprintf("Eligibility assessment for %s registration (score %d/100)", regType, score),
		ActionSteps:  gaps,
	}
}

func documentsResults(answers map[string]string) *AutomationResults {
	constitution := answer(answers, "constitution", "Individual")
	hasPAN := isYes(answer(answers, "pan_available", "No"))
	hasFinancials := isYes(answer(answers, "financials_available", "No"))

	checklist := []string{
		mark(hasPAN) + " PAN card of the applicant",
		mark(hasFinancials) + " Audited financial statements (3 years)",
		mark(false) + " Net worth certificate from a chartered accountant",
		mark(false) + " Fit-and-proper declarations for principals",
	}
	switch constitution {
	case "Company":
		checklist = append(checklist,
			mark(false)+" Certificate of incorporation and MoA/AoA",
			mark(false)+" Board resolution authorising the application")
	case "LLP":
		checklist = append(checklist,
			mark(false)+" LLP agreement and certificate of incorporation")
	case "Partnership":
		checklist = append(checklist,
			mark(false)+" Registered partnership deed")
	default:
		checklist = append(checklist,
			mark(false)+" Identity and address proof of the individual")
	}

	actions := []string{}
	if !hasPAN {
		actions = append(actions, "Apply for or locate the entity's PAN card.")
	}
	if !hasFinancials {
		actions = append(actions, "Have your accounts audited for the last three financial years.")
	}
	actions = append(actions, "Self-attest every document and scan it under 10 MB.")

	return &AutomationResults{
		Results:      checklist,
		Deliverables: fmt.Sprintf("Document checklist for a %s applicant", constitution),
		ActionSteps:  actions,
	}
}

func applicationResults(answers map[string]string) *AutomationResults {
	applicant := answer(answers, "applicant_name", "(applicant name)")
	entity := answer(answers, "entity_name", "(entity name)")
	email := answer(answers, "contact_email", "(contact email)")
	regType := answer(answers, "registration_type", "Investment Adviser")
	fee := registrationFees[regType]

	results := []string{
		fmt.Sprintf("Applicant: %s", applicant),
		fmt.Sprintf("Entity: %s", entity),
		fmt.Sprintf("Correspondence email: %s", email),
		fmt.Sprintf("Registration sought: %s", regType),
		fmt.Sprintf("Application fee: ₹%s", formatRupees(fee)),
	}

	return &AutomationResults{
		Results:      results,
		Deliverables: fmt.Sprintf("Form A summary sheet for %s (%s registration)", entity, regType),
		ActionSteps: []string{
			"Transfer the summary into Form A of the applicable regulations.",
			fmt.Sprintf("Arrange online payment of the ₹%s application fee.", formatRupees(fee)),
			"File the form with attachments on siportal.sebi.gov.in.",
		},
	}
}

func complianceResults(answers map[string]string) *AutomationResults {
	regType := answer(answers, "registration_type", "Investment Adviser")
	fyEnd := answer(answers, "fy_end", "March")
	hasOfficer := isYes(answer(answers, "compliance_officer", "No"))

	q1, q2, q3, annual := "June", "September", "December", "March"
	if fyEnd == "December" {
		q1, q2, q3, annual = "March", "June", "September", "December"
	}

	calendar := []string{
		fmt.Sprintf("%s: Quarterly client/complaint report to the exchange or SEBI", q1),
		fmt.Sprintf("%s: Half-yearly net worth certificate filing", q2),
		fmt.Sprintf("%s: Quarterly client/complaint report", q3),
		fmt.Sprintf("%s: Annual compliance audit report and fee payment", annual),
	}

	actions := []string{
		fmt.Sprintf("Calendar each %s-registration due date with a two-week reminder.", regType),
	}
	if !hasOfficer {
		actions = append(actions, "Designate a compliance officer and intimate SEBI.")
	}
	actions = append(actions, "Subscribe to SEBI circulars for your category to catch format changes.")

	return &AutomationResults{
		Results:      calendar,
		Deliverables: fmt.Sprintf("First-year compliance calendar for a %s (FY ending %s)", regType, fyEnd),
		ActionSteps:  actions,
	}
}

func mark(have bool) string {
	if have {
		return "[have]"
	}
	return "[missing]"
}

// formatRupees renders an amount with Indian digit grouping
// (1,00,00,000 rather than 10,000,000).
func formatRupees(n int64) string {
	if n < 0 {
		return "-" + formatRupees(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	head := s[:len(s)-3]
	tail := s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// renderResults formats an automation result set for display.
func renderResults(step *Step, res *AutomationResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s — automation complete\n\nResults:\n", step.Title)
	for _, line := range res.Results {
		fmt.Fprintf(&b, "• %s\n", line)
	}
	fmt.Fprintf(&b, "\nDeliverable: %s\n\nAction steps:\n", res.Deliverables)
	for i, action := range res.ActionSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}
	b.WriteString("\nReply \"review\" to see this again, \"download\" for a document version, or \"done\" to move on.")
	return b.String()
}

// renderResultsDocument renders results as a plain-text document block for
// the download command.
func renderResultsDocument(step *Step, res *AutomationResults) string {
	var b strings.Builder
	line := strings.Repeat("=", 48)
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", line, strings.ToUpper(step.Title), line)
	b.WriteString("RESULTS\n")
	for _, r := range res.Results {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	fmt.Fprintf(&b, "\nDELIVERABLE\n  %s\n\nACTION STEPS\n", res.Deliverables)
	for i, action := range res.ActionSteps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, action)
	}
	b.WriteString(line + "\n")
	return b.String()
}
