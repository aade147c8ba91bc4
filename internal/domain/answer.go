package domain

// Source is one citation attached to a knowledge answer.
type Source struct {
	SourceFile     string `json:"source_file,omitempty"`
	DocType        string `json:"doc_type"`
	Year           int    `json:"year,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
}

// Answer is a response from the knowledge-query collaborator, or a canned
// substitute when the collaborator is unavailable.
type Answer struct {
	Question       string   `json:"question"`
	Text           string   `json:"answer"`
	Sources        []Source `json:"sources,omitempty"`
	SourceCount    int      `json:"source_count"`
	ProcessingTime float64  `json:"processing_time,omitempty"`
	Fallback       bool     `json:"fallback,omitempty"`
}
