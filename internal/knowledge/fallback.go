package knowledge

import (
	"strings"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// cannedEntry maps utterance keywords to a prepared regulatory answer.
type cannedEntry struct {
	keywords []string
	answer   string
}

// cannedAnswers is evaluated in order; the first entry with a matching
// keyword wins.
var cannedAnswers = []cannedEntry{
	{
		keywords: []string{"ipo", "initial public offer"},
		answer: "To apply for an IPO you need a demat account and a PAN. Applications go through " +
			"your broker's platform or your bank's ASBA facility, where the amount stays blocked in " +
			"your account until allotment. Retail investors can bid up to ₹2,00,000 per issue. Check " +
			"the red herring prospectus on the exchange websites for issue dates and price bands.",
	},
	{
		keywords: []string{"mutual fund", "sip", "nav"},
		answer: "Mutual funds in India are regulated under the SEBI (Mutual Funds) Regulations, 1996. " +
			"Every scheme must publish its NAV daily, disclose its complete portfolio monthly, and " +
			"label its risk level on the riskometer. Before investing, verify the fund house's " +
			"registration on the SEBI website and read the scheme information document.",
	},
	{
		keywords: []string{"insider trading", "unpublished price sensitive"},
		answer: "Insider trading is prohibited under the SEBI (Prohibition of Insider Trading) " +
			"Regulations, 2015. Trading while in possession of unpublished price sensitive information, " +
			"or communicating it to others, attracts penalties up to ₹25 crore or three times the " +
			"profit made, whichever is higher. Listed companies must maintain a structured digital " +
			"database of persons with access to such information.",
	},
	{
		keywords: []string{"register", "registration", "apply", "application"},
		answer: "Market intermediaries register with SEBI through the SEBI Intermediary Portal " +
			"(siportal.sebi.gov.in). The process requires Form A of the relevant regulations, the " +
			"prescribed application fee, and supporting documents covering net worth, infrastructure, " +
			"and fit-and-proper declarations. SEBI typically responds with queries or an in-principle " +
			"decision within 30 days of a complete application.",
	},
	{
		keywords: []string{"compliance", "reporting", "filing"},
		answer: "Registered intermediaries file periodic reports with SEBI: half-yearly net worth " +
			"certificates, annual compliance audit reports, and event-based disclosures for changes in " +
			"control or key personnel. Exchanges and depositories prescribe additional formats for " +
			"their members. Late filings attract daily penalties under the intermediary regulations.",
	},
	{
		keywords: []string{"eligibility", "eligible", "net worth", "qualification"},
		answer: "Eligibility for SEBI registration depends on the intermediary category. Common " +
			"requirements are a minimum net worth (for example ₹5 crore for stock brokers and ₹5 lakh " +
			"for individual investment advisers), relevant NISM certifications for key personnel, " +
			"adequate office infrastructure, and a clean regulatory track record for the applicant " +
			"and its principals.",
	},
}

// genericDeflection is returned when no keyword matches.
const genericDeflection = "I don't have a specific answer for that right now. For authoritative " +
	"information please visit www.sebi.gov.in, call the SEBI toll-free helpline 1800 266 7575, " +
	"or raise a complaint on the SCORES portal (scores.sebi.gov.in). You can also ask me about " +
	"IPOs, mutual funds, insider trading, or intermediary registration."

// CannedAnswer picks a prepared answer for the question by keyword match.
// Used whenever the knowledge collaborator cannot be reached.
func CannedAnswer(question string) domain.Answer {
	lowered := strings.ToLower(question)
	for _, entry := range cannedAnswers {
		if containsAny(lowered, entry.keywords) {
			return domain.Answer{Question: question, Text: entry.answer, Fallback: true}
		}
	}
	return domain.Answer{Question: question, Text: genericDeflection, Fallback: true}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
