package domain

import (
	"testing"
)

func TestNormalizePAN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantPAN string
		wantOK  bool
	}{
		{"valid upper", "ABCDE1234F", "ABCDE1234F", true},
		{"valid lower", "abcde1234f", "ABCDE1234F", true},
		{"padded", "  ABCDE1234F  ", "ABCDE1234F", true},
		{"nine chars", "ABCDE1234", "ABCDE1234", false},
		{"eleven chars", "ABCDE1234FG", "ABCDE1234FG", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pan, ok := NormalizePAN(tt.input)
			if pan != tt.wantPAN || ok != tt.wantOK {
				t.Errorf("NormalizePAN(%q) = (%q, %v), want (%q, %v)", tt.input, pan, ok, tt.wantPAN, tt.wantOK)
			}
		})
	}
}

func TestNormalizeMobile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantMobile string
		wantOK     bool
	}{
		{"plain digits", "9876543210", "9876543210", true},
		{"hyphenated", "98765-43210", "9876543210", true},
		{"spaced with code", "+91 98765 43210", "919876543210", false},
		{"too short", "12345", "12345", false},
		{"letters", "98765abcde", "98765", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mobile, ok := NormalizeMobile(tt.input)
			if mobile != tt.wantMobile || ok != tt.wantOK {
				t.Errorf("NormalizeMobile(%q) = (%q, %v), want (%q, %v)", tt.input, mobile, ok, tt.wantMobile, tt.wantOK)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"test@example.com", "a.b@c.co.in", " padded@example.com "}
	invalid := []string{"", "no-at-sign", "two@@example.com", "user@nodot", "spaces in@example.com"}

	for _, s := range valid {
		if !ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = true, want false", s)
		}
	}
}

func TestValidDOB(t *testing.T) {
	t.Parallel()

	valid := []string{"01/01/1990", "31/12/2000"}
	invalid := []string{"2024/01/01", "1/1/1990", "01-01-1990", "01/01/90", ""}

	for _, s := range valid {
		if !ValidDOB(s) {
			t.Errorf("ValidDOB(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidDOB(s) {
			t.Errorf("ValidDOB(%q) = true, want false", s)
		}
	}
}
