package chat

// StepKind tags how a guide step is completed.
type StepKind int

const (
	// StepPlain steps advance on "next".
	StepPlain StepKind = iota
	// StepManual steps must be confirmed with "done".
	StepManual
	// StepAutomatable steps offer an automation sub-flow ("auto") or
	// manual handling ("manual", then "done").
	StepAutomatable
)

// QuestionKind tags how an automation answer is validated.
type QuestionKind int

const (
	// QuestionOpen accepts any non-empty text.
	QuestionOpen QuestionKind = iota
	// QuestionNumeric requires a positive integer after stripping
	// non-digit characters.
	QuestionNumeric
	// QuestionClosed requires a case-insensitive containment match
	// against one of the options.
	QuestionClosed
)

// Question is one automation prompt.
type Question struct {
	Field       string
	Label       string
	Description string
	Kind        QuestionKind
	Options     []string
	Tip         string
}

// Step is one stage of the registration guide.
type Step struct {
	ID             string
	Title          string
	Description    string
	Action         string
	Documents      []string
	Tips           []string
	Kind           StepKind
	Questions      []Question
	AutomationNote string
}

var yesNo = []string{"Yes", "No"}

// registrationTypes are the intermediary categories the automation flows
// recognize; each has a net-worth threshold in registrationThresholds.
var registrationTypes = []string{
	"Stock Broker",
	"Depository Participant",
	"Mutual Fund",
	"Portfolio Manager",
	"Investment Adviser",
	"Research Analyst",
}

// registrationThresholds maps a registration type to its minimum net worth
// requirement in rupees.
var registrationThresholds = map[string]int64{
	"Stock Broker":           5_00_00_000,
	"Depository Participant": 2_00_00_000,
	"Mutual Fund":            50_00_00_000,
	"Portfolio Manager":      5_00_00_000,
	"Investment Adviser":     5_00_000,
	"Research Analyst":       1_00_000,
}

// registrationFees maps a registration type to its Form A application fee
// in rupees.
var registrationFees = map[string]int64{
	"Stock Broker":           50_000,
	"Depository Participant": 50_000,
	"Mutual Fund":            5_00_000,
	"Portfolio Manager":      1_00_000,
	"Investment Adviser":     5_000,
	"Research Analyst":       5_000,
}

// guideSteps is the registration guide's static step sequence. Loaded once
// at startup and never mutated.
var guideSteps = []Step{
	{
		ID:    "eligibility",
		Title: "Check Eligibility",
		Description: "Confirm you meet SEBI's requirements for your intermediary category: " +
			"minimum net worth, professional certifications, and infrastructure.",
		Action: "Compare your financials and qualifications against the category's eligibility norms.",
		Documents: []string{
			"Net worth certificate from a chartered accountant",
			"NISM/NCFM certification certificates",
			"Stock exchange membership proof (if applicable)",
		},
		Tips: []string{
			"Net worth requirements differ widely by category — verify yours before anything else.",
			"Certifications must be valid on the date of application, not just at the time of the exam.",
		},
		Kind: StepAutomatable,
		Questions: []Question{
			{
				Field:       "registration_type",
				Label:       "Which registration are you applying for?",
				Description: "The intermediary category determines the eligibility norms.",
				Kind:        QuestionClosed,
				Options:     registrationTypes,
				Tip:         "Reply with the category name, e.g. \"Investment Adviser\".",
			},
			{
				Field:       "net_worth",
				Label:       "What is your current net worth in rupees?",
				Description: "As certified by a chartered accountant.",
				Kind:        QuestionNumeric,
				Tip:         "A plain number is fine; separators are ignored.",
			},
			{
				Field:       "certification",
				Label:       "Do you hold the relevant NISM/NCFM certification?",
				Kind:        QuestionClosed,
				Options:     yesNo,
				Tip:         "Answer yes only if the certification is currently valid.",
			},
			{
				Field:       "exchange_membership",
				Label:       "Do you have a stock exchange membership?",
				Kind:        QuestionClosed,
				Options:     yesNo,
				Tip:         "Required for broking categories, optional for advisory ones.",
			},
		},
		AutomationNote: "I'll assess your readiness and point out any gaps.",
	},
	{
		ID:    "documents",
		Title: "Prepare Documents",
		Description: "Assemble the supporting documents for your application: constitution " +
			"documents, PAN, audited financials, and infrastructure details.",
		Action: "Collect and self-attest every document on the checklist for your constitution type.",
		Documents: []string{
			"PAN card of the applicant entity",
			"Certificate of incorporation / partnership deed",
			"Audited financial statements for the last three years",
			"Director/partner KYC documents",
		},
		Tips: []string{
			"SEBI returns applications with incomplete document sets — a missing page costs weeks.",
			"Keep scanned copies under 10 MB per file for the portal upload.",
		},
		Kind: StepAutomatable,
		Questions: []Question{
			{
				Field:       "constitution",
				Label:       "What is your constitution type?",
				Description: "The document checklist differs per constitution.",
				Kind:        QuestionClosed,
				Options:     []string{"Individual", "Partnership", "Company", "LLP"},
				Tip:         "Reply Individual, Partnership, Company, or LLP.",
			},
			{
				Field:   "pan_available",
				Label:   "Do you have the entity's PAN card at hand?",
				Kind:    QuestionClosed,
				Options: yesNo,
			},
			{
				Field:       "financials_available",
				Label:       "Are audited financial statements available?",
				Description: "Last three financial years, or since incorporation if newer.",
				Kind:        QuestionClosed,
				Options:     yesNo,
			},
		},
		AutomationNote: "I'll generate a tailored checklist with what you have and what's missing.",
	},
	{
		ID:    "application",
		Title: "Fill Application Form A",
		Description: "Form A of the relevant SEBI regulations is the registration application. " +
			"It covers the applicant's particulars, financials, and declarations.",
		Action: "Complete Form A with the entity's details and the fit-and-proper declarations.",
		Documents: []string{
			"Form A of the applicable regulations",
			"Board resolution authorising the application",
		},
		Tips: []string{
			"Answers in Form A must match the supporting documents exactly, including spellings.",
		},
		Kind: StepAutomatable,
		Questions: []Question{
			{
				Field: "applicant_name",
				Label: "What is the applicant's full name?",
				Kind:  QuestionOpen,
			},
			{
				Field:       "entity_name",
				Label:       "What is the registered entity name?",
				Description: "As it appears on the certificate of incorporation.",
				Kind:        QuestionOpen,
			},
			{
				Field: "contact_email",
				Label: "Which email should SEBI use for correspondence?",
				Kind:  QuestionOpen,
			},
			{
				Field:   "registration_type",
				Label:   "Which registration is this application for?",
				Kind:    QuestionClosed,
				Options: registrationTypes,
			},
		},
		AutomationNote: "I'll draft a Form A summary sheet with the applicable fee and filing instructions.",
	},
	{
		ID:    "portal",
		Title: "Submit on SEBI Intermediary Portal",
		Description: "Applications are filed electronically on the SEBI Intermediary Portal " +
			"(siportal.sebi.gov.in) along with the application fee.",
		Action: "Create a portal account, upload Form A with attachments, and pay the fee online.",
		Tips: []string{
			"Keep the portal acknowledgement number — every later interaction references it.",
		},
		Kind: StepManual,
	},
	{
		ID:    "queries",
		Title: "Respond to SEBI Queries",
		Description: "SEBI typically raises clarification queries within 30 days of a complete " +
			"application. Responses go back through the portal.",
		Action: "Answer each query completely in one response to avoid another round-trip.",
		Tips: []string{
			"Partial replies restart the clock — address every point in the query letter.",
		},
		Kind: StepPlain,
	},
	{
		ID:    "site_visit",
		Title: "Facility & Site Visit",
		Description: "For several categories SEBI or the exchange inspects the applicant's " +
			"office infrastructure and systems before granting registration.",
		Action: "Prepare your office, systems, and records for inspection and host the visit.",
		Documents: []string{
			"Office lease or ownership proof",
			"Systems and connectivity details",
		},
		Kind: StepManual,
	},
	{
		ID:    "certificate",
		Title: "Receive Registration Certificate",
		Description: "On approval SEBI issues the certificate of registration with your " +
			"registration number. Verify every particular on it immediately.",
		Action: "Download the certificate from the portal and verify the registered particulars.",
		Kind:   StepPlain,
	},
	{
		ID:    "compliance",
		Title: "Post-Registration Compliance",
		Description: "Registration brings ongoing obligations: periodic filings, fee payments, " +
			"and disclosure of material changes.",
		Action: "Set up a compliance calendar covering every recurring filing for your category.",
		Tips: []string{
			"Late filings attract daily penalties — calendar the due dates with reminders.",
		},
		Kind: StepAutomatable,
		Questions: []Question{
			{
				Field:   "registration_type",
				Label:   "Which registration do you hold?",
				Kind:    QuestionClosed,
				Options: registrationTypes,
			},
			{
				Field:       "fy_end",
				Label:       "When does your financial year end?",
				Kind:        QuestionClosed,
				Options:     []string{"March", "December"},
				Tip:         "Most Indian entities close in March.",
			},
			{
				Field:   "compliance_officer",
				Label:   "Do you have a dedicated compliance officer?",
				Kind:    QuestionClosed,
				Options: yesNo,
			},
		},
		AutomationNote: "I'll lay out your first-year compliance calendar.",
	},
}
