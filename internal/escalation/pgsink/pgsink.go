// Package pgsink records escalations in PostgreSQL.
package pgsink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

var tracer = otel.Tracer("github.com/linnemanlabs/helpdesk/internal/escalation/pgsink")

// Sink writes to the escalations table created by the embedded migrations.
// The pool is owned by the caller.
type Sink struct {
	pool *pgxpool.Pool
}

// New returns a Sink over an already migrated pool.
func New(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

const escalationColumns = `record_id, ticket_id, recorded_at, subject, description, category,
	attempts, final_draft, reviewer_feedback, retrieved_context`

// Record implements ticket.EscalationSink. Every call appends a new row, even
// for a record ID already present.
func (s *Sink) Record(ctx context.Context, rec *ticket.EscalationRecord) error {
	ctx, span := tracer.Start(ctx, "pgsink.Record", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
		attribute.String("helpdesk.ticket.id", rec.TicketID),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx, `INSERT INTO escalations (`+escalationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID,
		rec.TicketID,
		rec.Timestamp,
		rec.Subject,
		rec.Description,
		rec.Category,
		rec.Attempts,
		rec.FinalDraft,
		rec.ReviewerFeedback,
		rec.RetrievedContext,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("pgsink: insert escalation: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*ticket.EscalationRecord, error) {
	ctx, span := tracer.Start(ctx, "pgsink.Recent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT `+escalationColumns+`
		FROM escalations ORDER BY recorded_at DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pgsink: query escalations: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ticket.EscalationRecord, error) {
		var rec ticket.EscalationRecord
		err := row.Scan(&rec.ID, &rec.TicketID, &rec.Timestamp, &rec.Subject, &rec.Description,
			&rec.Category, &rec.Attempts, &rec.FinalDraft, &rec.ReviewerFeedback, &rec.RetrievedContext)
		return &rec, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pgsink: scan escalations: %w", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}
