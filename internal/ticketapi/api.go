// Package ticketapi exposes the ticket pipeline over HTTP.
package ticketapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// maxBodyBytes caps request payloads.
const maxBodyBytes = 64 << 10

// TicketService defines the business operations ticketapi needs.
type TicketService interface {
	Submit(ctx context.Context, t ticket.Ticket) (*ticket.RunResult, error)
}

// Catalog lists the knowledge documents available per category.
type Catalog interface {
	Categories() []ticket.Category
	Lookup(c ticket.Category) []ticket.Document
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       TicketService
	retriever ticket.Retriever
	catalog   Catalog
}

// New creates a new API handler.
func New(logger log.Logger, svc TicketService, retriever ticket.Retriever, catalog Catalog) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("ticket service is required"))
	}
	if retriever == nil {
		panic(xerrors.New("retriever is required"))
	}
	if catalog == nil {
		panic(xerrors.New("knowledge catalog is required"))
	}
	return &API{
		logger:    logger,
		svc:       svc,
		retriever: retriever,
		catalog:   catalog,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tickets", a.handleSubmitTicket)
		r.Post("/retrieve", a.handleRetrieve)
		r.Get("/categories", a.handleListCategories)
	})
}

type errorBody struct {
	Error  string            `json:"error"`
	Field  string            `json:"field,omitempty"`
	Result *ticket.RunResult `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing useful to do with an encode error once headers are out
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return false
	}
	return true
}
