// Package domain contains core domain types for the SEBI Saathi application.
package domain

import (
	"time"
)

// User represents a registered SCORES account holder.
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	PAN          string    `json:"pan"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	DOB          string    `json:"dob"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials is the user id / password pair a chat session caches after
// a successful registration or login, reused by later workflows in the
// same session.
type Credentials struct {
	UserID   string
	Password string
}

// Complete returns true when both halves of the pair are present.
func (c Credentials) Complete() bool {
	return c.UserID != "" && c.Password != ""
}
