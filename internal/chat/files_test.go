package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shivin4/RAGSebi/internal/domain"
)

func pdf(name string, size int64) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Size: size, MediaType: "application/pdf"}
}

func TestAttachmentsCountGate(t *testing.T) {
	t.Parallel()

	var a Attachments
	for i := 0; i < MaxAttachments; i++ {
		if err := a.Accept(pdf(fmt.Sprintf("doc-%d.pdf", i), 100)); err != nil {
			t.Fatalf("file %d rejected: %v", i, err)
		}
	}
	err := a.Accept(pdf("one-too-many.pdf", 100))
	if !errors.Is(err, ErrAttachmentLimit) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if a.Len() != MaxAttachments {
		t.Fatalf("staged %d files, want %d", a.Len(), MaxAttachments)
	}
}

func TestAttachmentsSizeGate(t *testing.T) {
	t.Parallel()

	var a Attachments
	if err := a.Accept(pdf("exactly-20mb.pdf", MaxAttachmentBytes)); err != nil {
		t.Fatalf("file at the size limit rejected: %v", err)
	}
	err := a.Accept(pdf("too-big.pdf", MaxAttachmentBytes+1))
	if !errors.Is(err, ErrAttachmentSize) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestAttachmentsTypeGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mediaType string
		ok        bool
	}{
		{"application/pdf", true},
		{"application/PDF", true},
		{"text/plain; charset=utf-8", true},
		{"image/png", true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"application/zip", false},
		{"video/mp4", false},
		{"application/x-msdownload", false},
		{"", false},
	}
	for _, tt := range tests {
		var a Attachments
		err := a.Accept(domain.UploadedFile{Name: "f", Size: 100, MediaType: tt.mediaType})
		if tt.ok && err != nil {
			t.Errorf("Accept(%q) = %v, want accepted", tt.mediaType, err)
		}
		if !tt.ok && !errors.Is(err, ErrAttachmentType) {
			t.Errorf("Accept(%q) = %v, want type error", tt.mediaType, err)
		}
	}
}

func TestAttachmentsRemoveFirstMatch(t *testing.T) {
	t.Parallel()

	var a Attachments
	mustAccept := func(f domain.UploadedFile) {
		t.Helper()
		if err := a.Accept(f); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	mustAccept(pdf("proof.pdf", 10))
	mustAccept(pdf("proof.pdf", 20))
	mustAccept(pdf("other.pdf", 30))

	if !a.Remove("proof.pdf") {
		t.Fatal("expected removal")
	}
	files := a.List()
	if len(files) != 2 {
		t.Fatalf("len = %d, want 2", len(files))
	}
	// Only the first match goes; the duplicate stays.
	if files[0].Name != "proof.pdf" || files[0].Size != 20 {
		t.Fatalf("wrong file removed: %+v", files)
	}

	if a.Remove("missing.pdf") {
		t.Fatal("Remove of an absent name should report false")
	}
}

func TestAttachmentsRejectionLeavesStagedFilesIntact(t *testing.T) {
	t.Parallel()

	var a Attachments
	if err := a.Accept(pdf("kept.pdf", 10)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := a.Accept(domain.UploadedFile{Name: "bad.zip", Size: 10, MediaType: "application/zip"}); err == nil {
		t.Fatal("expected rejection")
	}
	if a.Len() != 1 || a.List()[0].Name != "kept.pdf" {
		t.Fatalf("staged files disturbed by a rejection: %+v", a.List())
	}
}

func TestAttachmentsListIsACopy(t *testing.T) {
	t.Parallel()

	var a Attachments
	if err := a.Accept(pdf("doc.pdf", 10)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	list := a.List()
	list[0].Name = "mutated"
	if a.List()[0].Name != "doc.pdf" {
		t.Fatal("List must return a copy")
	}
}
