package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Mansoor88-6/overtime-agent/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit is the number of submissions kept when none is configured
const DefaultLimit = 5

// ErrNotFound is returned by Get for unknown IDs
var ErrNotFound = errors.New("history entry not found")

// Store keeps the most recent submissions made from this machine. It is a
// convenience list for the user and is never consulted by validation.
type Store struct {
	db     *sql.DB
	limit  int
	now    func() time.Time
	logger *zap.Logger
}

// NewStore creates a history store holding at most limit entries
func NewStore(db *sql.DB, limit int, logger *zap.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		db:     db,
		limit:  limit,
		now:    time.Now,
		logger: logger,
	}
}

// Add records an entry and drops everything beyond the newest limit entries.
// Missing ID and RecordedAt are filled in; the stored entry is returned.
func (s *Store) Add(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	entry.RecordedAt = entry.RecordedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submission_history
			(id, work_date, employee_id, employee_name, shift_label, time_in, time_out, duty_engineer, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Date, entry.EmployeeID, entry.EmployeeName, entry.ShiftLabel,
		entry.TimeIn, entry.TimeOut, entry.DutyEngineer, entry.RecordedAt.UnixMilli())
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to insert history entry: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM submission_history
		WHERE seq NOT IN (
			SELECT seq FROM submission_history
			ORDER BY recorded_at DESC, seq DESC
			LIMIT ?
		)
	`, s.limit)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	trimmed, _ := result.RowsAffected()
	s.logger.Debug("History entry added",
		zap.String("id", entry.ID),
		zap.String("employee_id", entry.EmployeeID),
		zap.Int64("trimmed", trimmed),
	)

	// millisecond precision is what the column keeps
	entry.RecordedAt = time.UnixMilli(entry.RecordedAt.UnixMilli()).UTC()
	return entry, nil
}

// List returns the stored entries, newest first
func (s *Store) List(ctx context.Context) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, work_date, employee_id, employee_name, shift_label, time_in, time_out, duty_engineer, recorded_at
		FROM submission_history
		ORDER BY recorded_at DESC, seq DESC
		LIMIT ?
	`, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.Date, &e.EmployeeID, &e.EmployeeName, &e.ShiftLabel,
			&e.TimeIn, &e.TimeOut, &e.DutyEngineer, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}

// Get returns one entry by ID
func (s *Store) Get(ctx context.Context, id string) (models.HistoryEntry, error) {
	var e models.HistoryEntry
	var recordedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, work_date, employee_id, employee_name, shift_label, time_in, time_out, duty_engineer, recorded_at
		FROM submission_history
		WHERE id = ?
	`, id).Scan(&e.ID, &e.Date, &e.EmployeeID, &e.EmployeeName, &e.ShiftLabel,
		&e.TimeIn, &e.TimeOut, &e.DutyEngineer, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryEntry{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to get history entry: %w", err)
	}
	e.RecordedAt = time.UnixMilli(recordedAt).UTC()
	return e, nil
}

// Clear removes every entry
func (s *Store) Clear(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM submission_history`)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	s.logger.Info("History cleared", zap.Int64("count", rowsAffected))
	return nil
}
