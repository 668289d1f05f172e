package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is one terminal outcome of one document in one pipeline run.
type JournalEntry struct {
	ID           uuid.UUID
	RunID        string
	Filename     string
	ContentHash  string
	Outcome      string
	DocumentType string
	Confidence   float64
	ErrorMessage string
	ElapsedMS    int64
	RecordedAt   time.Time
}

// JournalRepository records per-document outcomes.
type JournalRepository interface {
	Record(ctx context.Context, e JournalEntry) error
	LatestRun(ctx context.Context) (string, map[string]int, error)
}

const journalSchema = `CREATE TABLE IF NOT EXISTS processing_journal (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	filename      TEXT NOT NULL,
	content_hash  TEXT NOT NULL DEFAULT '',
	outcome       TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	elapsed_ms    BIGINT NOT NULL DEFAULT 0,
	recorded_at   TEXT NOT NULL
)`

const journalIndex = `CREATE INDEX IF NOT EXISTS idx_processing_journal_run ON processing_journal (run_id)`

type journalRepo struct {
	db  *DB
	log *slog.Logger
}

// NewJournalRepository creates the journal table if needed.
func NewJournalRepository(ctx context.Context, db *DB, log *slog.Logger) (JournalRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, stmt := range []string{journalSchema, journalIndex} {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("journal schema: %w", err)
		}
	}
	return &journalRepo{db: db, log: log}, nil
}

func (r *journalRepo) Record(ctx context.Context, e JournalEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	q := r.db.Rebind(`INSERT INTO processing_journal
		(id, run_id, filename, content_hash, outcome, document_type, confidence, error_message, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, q,
		e.ID.String(), e.RunID, e.Filename, e.ContentHash, e.Outcome, e.DocumentType,
		e.Confidence, e.ErrorMessage, e.ElapsedMS, e.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		r.log.Error("journal record failed", "filename", e.Filename, "outcome", e.Outcome, "err", err)
		return fmt.Errorf("journal insert: %w", err)
	}
	r.log.Debug("journal recorded", "id", e.ID, "filename", e.Filename, "outcome", e.Outcome)
	return nil
}

// LatestRun returns the most recent run ID and its outcome counts.
// An empty journal yields an empty run ID and a nil map.
func (r *journalRepo) LatestRun(ctx context.Context) (string, map[string]int, error) {
	var runID string
	row := r.db.SQL.QueryRowContext(ctx,
		`SELECT run_id FROM processing_journal ORDER BY recorded_at DESC LIMIT 1`)
	if err := row.Scan(&runID); err != nil {
		if isNoRows(err) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(
		`SELECT outcome, COUNT(*) FROM processing_journal WHERE run_id = ? GROUP BY outcome`), runID)
	if err != nil {
		return "", nil, fmt.Errorf("run counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return "", nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[outcome] = n
	}
	return runID, counts, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
