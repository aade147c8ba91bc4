package chat

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// Attachment intake limits, mirroring what the SCORES service enforces.
const (
	MaxAttachments     = 10
	MaxAttachmentBytes = 20 << 20 // 20MB per file
)

// Attachment rejection reasons.
var (
	ErrAttachmentLimit = errors.New("attachment limit reached (10 files per complaint)")
	ErrAttachmentSize  = errors.New("file exceeds the 20MB limit")
	ErrAttachmentType  = errors.New("unsupported file type")
)

// allowedAttachmentTypes maps accepted media types to a short label used in
// user-facing messages.
var allowedAttachmentTypes = map[string]string{
	"application/pdf":    "PDF",
	"application/msword": "Word",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "Word",
	"application/vnd.ms-excel": "Excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "Excel",
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/gif":  "GIF",
	"text/plain": "text",
}

// Attachments holds the files staged for the complaint currently being
// drafted. It is cleared after every submission attempt, successful or not,
// and on workflow cancellation.
type Attachments struct {
	files []domain.UploadedFile
}

// Accept validates one file against the count, size, and media-type gates.
// A rejection reports why; files already staged are unaffected.
func (a *Attachments) Accept(f domain.UploadedFile) error {
	if len(a.files) >= MaxAttachments {
		return fmt.Errorf("%s: %w", f.Name, ErrAttachmentLimit)
	}
	if f.Size > MaxAttachmentBytes {
		return fmt.Errorf("%s: %w", f.Name, ErrAttachmentSize)
	}
	if _, ok := allowedAttachmentTypes[normalizeMediaType(f.MediaType)]; !ok {
		return fmt.Errorf("%s (%s): %w", f.Name, f.MediaType, ErrAttachmentType)
	}
	a.files = append(a.files, f)
	return nil
}

// Remove drops the first staged file whose name matches and reports whether
// anything was removed.
func (a *Attachments) Remove(name string) bool {
	for i, f := range a.files {
		if f.Name == name {
			a.files = append(a.files[:i], a.files[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops all staged files.
func (a *Attachments) Clear() {
	a.files = nil
}

// List returns a copy of the staged files in intake order.
func (a *Attachments) List() []domain.UploadedFile {
	out := make([]domain.UploadedFile, len(a.files))
	copy(out, a.files)
	return out
}

// Len returns the number of staged files.
func (a *Attachments) Len() int {
	return len(a.files)
}

// normalizeMediaType lowercases a media type and strips parameters such as
// "; charset=utf-8".
func normalizeMediaType(mt string) string {
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return parsed
}
