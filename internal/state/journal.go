package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"grimm.is/routepin/internal/clock"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrJournalClosed is returned after Close.
var ErrJournalClosed = errors.New("journal is closed")

// Record is one finished reconciliation operation.
type Record struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Input      string    `json:"input,omitempty"`
	Gateway    string    `json:"gateway,omitempty"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Outcome    string    `json:"outcome"`
	Errors     []string  `json:"errors,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Journal keeps a history of reconciliation runs in SQLite. It is optional
// and purely informational; the JSON state file stays authoritative.
type Journal struct {
	db     *sql.DB
	clock  clock.Clock
	mu     sync.Mutex
	closed bool
}

// OpenJournal opens (or creates) the journal database at path.
// Use ":memory:" for an in-process journal.
func OpenJournal(path string, clk clock.Clock) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS operations (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			input TEXT,
			gateway TEXT,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			errors TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_operations_finished ON operations(finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Journal{db: db, clock: clk}, nil
}

// Append stores rec. A zero FinishedAt is filled from the journal clock.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}

	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = j.clock.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}
	errs, err := json.Marshal(rec.Errors)
	if err != nil {
		return err
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO operations (id, kind, input, gateway, succeeded, failed, outcome, errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Input, rec.Gateway, rec.Succeeded, rec.Failed, rec.Outcome, string(errs),
		rec.StartedAt.UnixNano(), rec.FinishedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, input, gateway, succeeded, failed, outcome, errors, started_at, finished_at
		FROM operations ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec               Record
			input, gw, errs   sql.NullString
			started, finished int64
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &input, &gw, &rec.Succeeded, &rec.Failed,
			&rec.Outcome, &errs, &started, &finished); err != nil {
			return nil, err
		}
		rec.Input = input.String
		rec.Gateway = gw.String
		if errs.Valid && errs.String != "" && errs.String != "null" {
			_ = json.Unmarshal([]byte(errs.String), &rec.Errors)
		}
		rec.StartedAt = time.Unix(0, started)
		rec.FinishedAt = time.Unix(0, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
