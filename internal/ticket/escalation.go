package ticket

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EscalationRecord is the append-only hand-off entry for a ticket that
// exhausted its review attempts. Records are never updated or deleted.
type EscalationRecord struct {
	ID               string    `json:"id"`
	TicketID         string    `json:"ticket_id"`
	Timestamp        time.Time `json:"timestamp"`
	Subject          string    `json:"subject"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Attempts         int       `json:"attempts"`
	FinalDraft       string    `json:"final_draft"`
	ReviewerFeedback string    `json:"reviewer_feedback"`
	RetrievedContext string    `json:"retrieved_context"`
}

// NewEscalationRecord captures the terminal state of a rejected run.
func NewEscalationRecord(r *RunResult, now time.Time) *EscalationRecord {
	return &EscalationRecord{
		ID:               uuid.NewString(),
		TicketID:         r.ID,
		Timestamp:        now,
		Subject:          r.Ticket.Subject,
		Description:      r.Ticket.Description,
		Category:         string(r.Category),
		Attempts:         r.AttemptCount,
		FinalDraft:       r.FinalDraft,
		ReviewerFeedback: r.Review.Feedback,
		RetrievedContext: r.Retrieval.Summary,
	}
}

// EscalationSink durably records escalated tickets for offline human handling.
type EscalationSink interface {
	Record(ctx context.Context, rec *EscalationRecord) error
}

// EscalationSinkFunc adapts a plain function to EscalationSink.
type EscalationSinkFunc func(ctx context.Context, rec *EscalationRecord) error

// Record implements EscalationSink.
func (f EscalationSinkFunc) Record(ctx context.Context, rec *EscalationRecord) error {
	return f(ctx, rec)
}

// Notifier delivers human-facing notices about finished runs.
type Notifier interface {
	// Send announces a finished run (escalations in particular).
	Send(ctx context.Context, result *RunResult) error
	// Alert raises an operational alert, e.g. an escalation that could not be persisted.
	Alert(ctx context.Context, result *RunResult, cause error) error
}
