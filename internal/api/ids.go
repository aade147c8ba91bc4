package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// newUserID mints a SCORES account id: "SCR" + date + 6 uppercase hex chars.
func newUserID(now time.Time) (string, error) {
	suffix, err := randomHexUpper(3)
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return "SCR" + now.Format("20060102") + suffix, nil
}

// newComplaintID mints a complaint id: "SCR" + timestamp + 4 uppercase hex chars.
func newComplaintID(now time.Time) (string, error) {
	suffix, err := randomHexUpper(2)
	if err != nil {
		return "", fmt.Errorf("generate complaint id: %w", err)
	}
	return "SCR" + now.Format("20060102150405") + suffix, nil
}

// newPassword generates the one-time password returned at registration.
func newPassword() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func randomHexUpper(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
