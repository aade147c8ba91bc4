package domain

// UploadedFile describes a file attached to an in-progress complaint.
// Only the descriptor travels through the chat core; the bytes are opaque.
type UploadedFile struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
}
