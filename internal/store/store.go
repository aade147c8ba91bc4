// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/shivin4/RAGSebi/internal/domain"
)

// ErrDuplicatePAN is returned when registering a PAN that already has an account.
var ErrDuplicatePAN = errors.New("pan already registered")

// Repository defines the interface for persisting SCORES users and complaints.
type Repository interface {
	// CreateUser inserts a new user record. Returns ErrDuplicatePAN if the
	// PAN already has an account.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by their user ID. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// CreateComplaint inserts a new complaint together with its initial
	// history entry.
	CreateComplaint(ctx context.Context, complaint *domain.Complaint) error

	// GetComplaint retrieves a complaint by its ID. Returns (nil, nil) when absent.
	GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error)

	// EscalateComplaint moves a complaint to the given escalation level and
	// status and appends a history entry.
	EscalateComplaint(ctx context.Context, complaintID string, level int, status string, note string) error

	// CloseComplaint marks a complaint closed, stores the complainant's
	// feedback, and appends a history entry.
	CloseComplaint(ctx context.Context, complaintID string, feedback string, note string) error

	// History returns a complaint's status history, oldest first.
	History(ctx context.Context, complaintID string) ([]domain.ComplaintEvent, error)

	// Stats returns aggregate counts for the stats endpoint.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
