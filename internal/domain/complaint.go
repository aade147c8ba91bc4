package domain

import (
	"time"
)

// Complaint statuses as stored in the SCORES database. The set is a fixed
// external contract; unknown values must still round-trip unchanged.
const (
	StatusSubmitted     = "submitted"
	StatusUnderReview   = "under_review"
	StatusEscalatedL2   = "escalated_l2"
	StatusEscalatedSEBI = "escalated_sebi"
	StatusResolved      = "resolved"
	StatusClosed        = "closed"
)

// MaxEscalationLevel is the highest escalation a complaint can reach:
// 1 = registered entity, 2 = senior officer, 3 = SEBI.
const MaxEscalationLevel = 3

// Complaint is a grievance record owned by the SCORES service.
type Complaint struct {
	ComplaintID     string    `json:"complaint_id"`
	UserID          string    `json:"user_id"`
	EntityType      string    `json:"entity_type"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Files           []string  `json:"files,omitempty"`
	Status          string    `json:"status"`
	EscalationLevel int       `json:"escalation_level"`
	Feedback        string    `json:"feedback,omitempty"`
	ATRDate         string    `json:"atr_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ComplaintEvent is one row of a complaint's status history.
type ComplaintEvent struct {
	ID          int64     `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DaysOpen returns the whole days elapsed since the complaint was filed.
func (c *Complaint) DaysOpen(now time.Time) int {
	if now.Before(c.CreatedAt) {
		return 0
	}
	return int(now.Sub(c.CreatedAt).Hours() / 24)
}

// Terminal reports whether the status admits no further action.
func Terminal(status string) bool {
	return status == StatusResolved || status == StatusClosed
}

// EscalationAvailable reports whether a complaint in the given status may
// be escalated after daysElapsed days. Escalation opens on day 15 and only
// while the complaint is still with the entity or under review.
func EscalationAvailable(status string, daysElapsed int) bool {
	if daysElapsed < 15 {
		return false
	}
	return status == StatusSubmitted || status == StatusUnderReview
}

// ClosureAvailable reports whether a complaint in the given status may be
// closed by the complainant.
func ClosureAvailable(status string) bool {
	return !Terminal(status)
}

// ReminderNotes derives the follow-up reminders SCORES attaches to a
// tracked complaint based on its age and status.
func ReminderNotes(status string, daysElapsed int) []string {
	var notes []string
	if daysElapsed >= 10 && status == StatusSubmitted {
		notes = append(notes, "Your complaint has been pending for over 10 days. The entity has been reminded to respond.")
	}
	if EscalationAvailable(status, daysElapsed) {
		notes = append(notes, "Your complaint is eligible for escalation to the next level.")
	}
	if daysElapsed >= 21 && !Terminal(status) {
		notes = append(notes, "Your complaint has been flagged for senior officer review due to the delay.")
	}
	return notes
}
