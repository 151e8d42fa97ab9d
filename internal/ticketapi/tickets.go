package ticketapi

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

type submitRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// handleSubmitTicket runs one ticket through the pipeline and answers with
// the final result. Runs are synchronous; the service serializes them.
func (a *API) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	rr, err := a.svc.Submit(ctx, ticket.Ticket{
		Subject:     req.Subject,
		Description: req.Description,
	})

	span := trace.SpanFromContext(ctx)
	if rr != nil {
		span.SetAttributes(
			attribute.String("helpdesk.ticket.id", rr.ID),
			attribute.String("helpdesk.ticket.status", string(rr.Status)),
		)
	}

	var (
		ve  *ticket.ValidationError
		ce  *ticket.CollaboratorError
		ewe *ticket.EscalationWriteError
	)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rr)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &ce):
		a.logger.Warn(ctx, "ticket run failed on text-generation call", "step", ce.Step, "attempt", ce.Attempt, "error", ce.Err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Result: rr})
	case errors.As(err, &ewe):
		a.logger.Error(ctx, err, "escalation record not persisted")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Result: rr})
	default:
		a.logger.Error(ctx, err, "ticket submit failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Result: rr})
	}
}
