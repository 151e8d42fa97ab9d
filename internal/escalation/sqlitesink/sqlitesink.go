// Package sqlitesink records escalations in a local SQLite table.
package sqlitesink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

const schema = `
CREATE TABLE IF NOT EXISTS escalations (
	seq               INTEGER PRIMARY KEY,
	record_id         TEXT NOT NULL,
	ticket_id         TEXT NOT NULL,
	recorded_at       TEXT NOT NULL,
	subject           TEXT NOT NULL,
	description       TEXT NOT NULL,
	category          TEXT NOT NULL,
	attempts          INTEGER NOT NULL,
	final_draft       TEXT NOT NULL,
	reviewer_feedback TEXT NOT NULL,
	retrieved_context TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_escalations_recorded ON escalations(recorded_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_escalations_record_id ON escalations(record_id);
`

// tsLayout is fixed width so recorded_at sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Sink is an append-only escalation table.
type Sink struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Sink{db: db}, nil
}

// Close releases the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Record implements ticket.EscalationSink. Every call appends a new row, even
// for a record ID already present.
func (s *Sink) Record(ctx context.Context, rec *ticket.EscalationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalations (record_id, ticket_id, recorded_at, subject, description, category,
			attempts, final_draft, reviewer_feedback, retrieved_context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.TicketID,
		rec.Timestamp.UTC().Format(tsLayout),
		rec.Subject,
		rec.Description,
		rec.Category,
		rec.Attempts,
		rec.FinalDraft,
		rec.ReviewerFeedback,
		rec.RetrievedContext,
	)
	if err != nil {
		return fmt.Errorf("sqlitesink: insert escalation: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*ticket.EscalationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, ticket_id, recorded_at, subject, description, category,
			attempts, final_draft, reviewer_feedback, retrieved_context
		FROM escalations
		ORDER BY recorded_at DESC, seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlitesink: query escalations: %w", err)
	}
	defer rows.Close()

	var out []*ticket.EscalationRecord
	for rows.Next() {
		var rec ticket.EscalationRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.TicketID, &ts, &rec.Subject, &rec.Description,
			&rec.Category, &rec.Attempts, &rec.FinalDraft, &rec.ReviewerFeedback, &rec.RetrievedContext); err != nil {
			return nil, fmt.Errorf("sqlitesink: scan escalation: %w", err)
		}
		rec.Timestamp, err = time.Parse(tsLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlitesink: parse recorded_at %q: %w", ts, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
