package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shivin4/RAGSebi/internal/domain"
	"github.com/shivin4/RAGSebi/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	complaintMu sync.Mutex // serializes multi-statement complaint updates to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pan TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		mobile TEXT NOT NULL,
		dob TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS complaints (
		complaint_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		files TEXT,
		status TEXT NOT NULL DEFAULT 'submitted',
		escalation_level INTEGER NOT NULL DEFAULT 1,
		feedback TEXT,
		atr_date TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_complaints_user ON complaints(user_id);
	CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status);

	CREATE TABLE IF NOT EXISTS complaint_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		complaint_id TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (complaint_id) REFERENCES complaints(complaint_id)
	);
	CREATE INDEX IF NOT EXISTS idx_history_complaint ON complaint_history(complaint_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, name, pan, email, mobile, dob, password_hash, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Name, user.PAN, user.Email,
		user.Mobile, user.DOB, user.PasswordHash,
		user.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.pan") {
			return ErrDuplicatePAN
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, name, pan, email, mobile, dob, password_hash, created_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var createdAt int64

	err := row.Scan(
		&user.UserID, &user.Name, &user.PAN, &user.Email,
		&user.Mobile, &user.DOB, &user.PasswordHash, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateComplaint inserts a complaint and its initial history entry.
func (s *SQLiteStore) CreateComplaint(ctx context.Context, complaint *domain.Complaint) error {
	s.complaintMu.Lock()
	defer s.complaintMu.Unlock()

	filesJSON, err := json.Marshal(complaint.Files)
	if err != nil {
		return fmt.Errorf("marshal files list: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			slog.Warn("rollback create complaint", "error", rollbackErr)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaints (
			complaint_id, user_id, entity_type, category, description,
			files, status, escalation_level, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		complaint.ComplaintID, complaint.UserID, complaint.EntityType,
		complaint.Category, complaint.Description, string(filesJSON),
		complaint.Status, complaint.EscalationLevel,
		complaint.CreatedAt.Unix(), complaint.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaint_history (complaint_id, status, notes, created_at)
		VALUES (?, ?, ?, ?)`,
		complaint.ComplaintID, complaint.Status, "Complaint registered", complaint.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert complaint history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint: %w", err)
	}
	return nil
}

// GetComplaint retrieves a complaint by its ID.
func (s *SQLiteStore) GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	query := `
		SELECT complaint_id, user_id, entity_type, category, description,
		       files, status, escalation_level, feedback, atr_date,
		       created_at, updated_at
		FROM complaints WHERE complaint_id = ?`

	row := s.db.QueryRowContext(ctx, query, complaintID)

	var complaint domain.Complaint
	var filesJSON, feedback, atrDate sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&complaint.ComplaintID, &complaint.UserID, &complaint.EntityType,
		&complaint.Category, &complaint.Description, &filesJSON,
		&complaint.Status, &complaint.EscalationLevel, &feedback, &atrDate,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan complaint row: %w", err)
	}

	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &complaint.Files); err != nil {
			return nil, fmt.Errorf("unmarshal files list: %w", err)
		}
	}
	complaint.Feedback = feedback.String
	complaint.ATRDate = atrDate.String
	complaint.CreatedAt = time.Unix(createdAt, 0)
	complaint.UpdatedAt = time.Unix(updatedAt, 0)

	return &complaint, nil
}

// EscalateComplaint moves a complaint to the given level and status.
// Retries on SQLITE_BUSY since escalation contends with tracking reads.
func (s *SQLiteStore) EscalateComplaint(ctx context.Context, complaintID string, level int, status string, note string) error {
	return shared.WithBusyRetry(ctx, 3, 100*time.Millisecond, func() error {
		return s.updateComplaintOnce(ctx, complaintID, status, note, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				UPDATE complaints SET status = ?, escalation_level = ?, updated_at = ?
				WHERE complaint_id = ?`,
				status, level, time.Now().Unix(), complaintID,
			)
			return err
		})
	})
}

// CloseComplaint marks a complaint closed with the complainant's feedback.
func (s *SQLiteStore) CloseComplaint(ctx context.Context, complaintID string, feedback string, note string) error {
	return shared.WithBusyRetry(ctx, 3, 100*time.Millisecond, func() error {
		return s.updateComplaintOnce(ctx, complaintID, domain.StatusClosed, note, func(tx *sql.Tx) error {
			var fb interface{}
			if feedback != "" {
				fb = feedback
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE complaints SET status = ?, feedback = ?, updated_at = ?
				WHERE complaint_id = ?`,
				domain.StatusClosed, fb, time.Now().Unix(), complaintID,
			)
			return err
		})
	})
}

// updateComplaintOnce applies one status mutation plus its history entry
// inside a single transaction.
func (s *SQLiteStore) updateComplaintOnce(ctx context.Context, complaintID, status, note string, update func(*sql.Tx) error) error {
	s.complaintMu.Lock()
	defer s.complaintMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			slog.Warn("rollback complaint update", "complaint_id", complaintID, "error", rollbackErr)
		}
	}()

	if err := update(tx); err != nil {
		return fmt.Errorf("update complaint: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaint_history (complaint_id, status, notes, created_at)
		VALUES (?, ?, ?, ?)`,
		complaintID, status, note, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint update: %w", err)
	}
	return nil
}

// History returns a complaint's status history, oldest first.
func (s *SQLiteStore) History(ctx context.Context, complaintID string) ([]domain.ComplaintEvent, error) {
	query := `
		SELECT id, complaint_id, status, notes, created_at
		FROM complaint_history WHERE complaint_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("query complaint history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close history rows", "error", closeErr)
		}
	}()

	var events []domain.ComplaintEvent
	for rows.Next() {
		var event domain.ComplaintEvent
		var notes sql.NullString
		var createdAt int64

		if err := rows.Scan(&event.ID, &event.ComplaintID, &event.Status, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		event.Notes = notes.String
		event.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return events, nil
}

// Stats returns aggregate counts for the stats endpoint.
func (s *SQLiteStore) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{ByStatus: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.Users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints`).Scan(&stats.Complaints); err != nil {
		return nil, fmt.Errorf("count complaints: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM complaints GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count complaints by status: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stats rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.ByStatus[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
