package ticketapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/helpdesk/internal/knowledge"
	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// fakeService returns a fixed result and error and records the last ticket.
type fakeService struct {
	rr   *ticket.RunResult
	err  error
	got  ticket.Ticket
	hits int
}

func (f *fakeService) Submit(_ context.Context, t ticket.Ticket) (*ticket.RunResult, error) {
	f.hits++
	f.got = t
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return f.rr, f.err
}

func newTestRouter(t *testing.T, svc TicketService) chi.Router {
	t.Helper()
	store := knowledge.Default()
	api := New(log.Nop(), svc, knowledge.NewRetriever(store), store)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	store := knowledge.Default()
	api := New(nil, &fakeService{}, knowledge.NewRetriever(store), store)
	if api.logger == nil {
		t.Fatal("New(nil, ...) left logger nil; expected Nop logger")
	}
}

func TestNew_NilDependencies_Panic(t *testing.T) {
	t.Parallel()

	store := knowledge.Default()
	ret := knowledge.NewRetriever(store)

	tests := []struct {
		name string
		fn   func()
	}{
		{"nil service", func() { New(nil, nil, ret, store) }},
		{"nil retriever", func() { New(nil, &fakeService{}, nil, store) }},
		{"nil catalog", func() { New(nil, &fakeService{}, ret, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

//  POST /api/v1/tickets

func TestSubmitTicket_Outcomes(t *testing.T) {
	t.Parallel()

	approved := &ticket.RunResult{ID: "01A", Status: ticket.StatusApproved, FinalDraft: "Here is how to reset."}
	escalated := &ticket.RunResult{ID: "01B", Status: ticket.StatusEscalated, EscalationLogged: true}
	failed := &ticket.RunResult{ID: "01C", Status: ticket.StatusFailed}
	lost := &ticket.RunResult{ID: "01D", Status: ticket.StatusEscalated}

	tests := []struct {
		name       string
		svc        *fakeService
		body       string
		wantStatus int
		wantID     string
		wantInBody string
	}{
		{
			name:       "approved",
			svc:        &fakeService{rr: approved},
			body:       `{"subject":"Cannot log in","description":"forgot password"}`,
			wantStatus: http.StatusOK,
			wantID:     "01A",
		},
		{
			name:       "escalated",
			svc:        &fakeService{rr: escalated},
			body:       `{"subject":"s","description":"d"}`,
			wantStatus: http.StatusOK,
			wantID:     "01B",
		},
		{
			name:       "blank subject",
			svc:        &fakeService{},
			body:       `{"subject":"  ","description":"d"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: `"field":"subject"`,
		},
		{
			name:       "missing description",
			svc:        &fakeService{},
			body:       `{"subject":"s"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: `"field":"description"`,
		},
		{
			name: "collaborator failure",
			svc: &fakeService{rr: failed, err: &ticket.CollaboratorError{
				Step: ticket.StateDrafting, Attempt: 1, Err: context.DeadlineExceeded,
			}},
			body:       `{"subject":"s","description":"d"}`,
			wantStatus: http.StatusBadGateway,
			wantInBody: "context deadline exceeded",
		},
		{
			name:       "escalation write failure",
			svc:        &fakeService{rr: lost, err: &ticket.EscalationWriteError{Tries: 3, Err: errors.New("disk full")}},
			body:       `{"subject":"s","description":"d"}`,
			wantStatus: http.StatusInternalServerError,
			wantInBody: `"id":"01D"`,
		},
		{
			name:       "unexpected error",
			svc:        &fakeService{rr: failed, err: errors.New("boom")},
			body:       `{"subject":"s","description":"d"}`,
			wantStatus: http.StatusInternalServerError,
			wantInBody: "internal error",
		},
		{
			name:       "invalid JSON",
			svc:        &fakeService{},
			body:       `{bad`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "invalid payload",
		},
		{
			name:       "unknown field",
			svc:        &fakeService{},
			body:       `{"subject":"s","description":"d","priority":"p1"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "invalid payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, newTestRouter(t, tt.svc), http.MethodPost, "/api/v1/tickets", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
			if tt.wantID != "" {
				var got ticket.RunResult
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got.ID != tt.wantID {
					t.Errorf("id = %q, want %q", got.ID, tt.wantID)
				}
			}
			if tt.wantInBody != "" && !strings.Contains(rec.Body.String(), tt.wantInBody) {
				t.Errorf("body %s does not contain %s", rec.Body.String(), tt.wantInBody)
			}
		})
	}
}

func TestSubmitTicket_PassesFields(t *testing.T) {
	t.Parallel()

	svc := &fakeService{rr: &ticket.RunResult{ID: "x"}}
	do(t, newTestRouter(t, svc), http.MethodPost, "/api/v1/tickets", `{"subject":"Refund","description":"charged twice"}`)

	if svc.got.Subject != "Refund" || svc.got.Description != "charged twice" {
		t.Errorf("ticket = %+v", svc.got)
	}
}

func TestSubmitTicket_BodyTooLarge(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	body := `{"subject":"s","description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := do(t, newTestRouter(t, svc), http.MethodPost, "/api/v1/tickets", body)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if svc.hits != 0 {
		t.Error("service should not be called for oversized body")
	}
}

//  Routing

func TestRegisterRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})
	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/tickets"},
		{http.MethodDelete, "/api/v1/tickets"},
		{http.MethodGet, "/api/v1/retrieve"},
		{http.MethodPost, "/api/v1/categories"},
	}
	for _, tt := range tests {
		rec := do(t, r, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}

//  POST /api/v1/retrieve

func TestRetrieve_SecurityLogin(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t, &fakeService{}), http.MethodPost, "/api/v1/retrieve",
		`{"category":"Security","subject":"Cannot login","description":"forgot password and 2FA not working"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var got retrieveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Category != ticket.CategorySecurity || !got.Matched {
		t.Errorf("category = %q matched=%v", got.Category, got.Matched)
	}
	if len(got.Documents) == 0 || got.Documents[0].Title != "Password Reset" {
		t.Errorf("documents = %+v, want Password Reset first", got.Documents)
	}
	if got.Fallback {
		t.Error("expected scored result, not fallback")
	}
	if !strings.HasPrefix(got.Summary, "Retrieved 3 relevant documents for category 'security': ") {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestRetrieve_UnknownCategoryUsesGeneral(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t, &fakeService{}), http.MethodPost, "/api/v1/retrieve",
		`{"category":"Shipping","subject":"where","description":"is my parcel"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got retrieveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Category != ticket.CategoryGeneral || got.Matched {
		t.Errorf("category = %q matched=%v, want General/false", got.Category, got.Matched)
	}
}

func TestRetrieve_MissingCategory(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t, &fakeService{}), http.MethodPost, "/api/v1/retrieve", `{"subject":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

//  GET /api/v1/categories

func TestListCategories(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t, &fakeService{}), http.MethodGet, "/api/v1/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		Categories []categoryInfo `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Categories) != 4 {
		t.Fatalf("categories = %d, want 4", len(got.Categories))
	}
	if got.Categories[0].Name != ticket.CategoryBilling || got.Categories[0].Key != "billing" {
		t.Errorf("first = %+v", got.Categories[0])
	}
	if n := len(got.Categories[3].Documents); n != 3 {
		t.Errorf("general documents = %d, want 3", n)
	}
}
