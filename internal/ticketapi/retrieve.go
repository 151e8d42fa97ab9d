package ticketapi

import (
	"net/http"
	"strings"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

type retrieveRequest struct {
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type retrieveResponse struct {
	Category  ticket.Category         `json:"category"`
	Matched   bool                    `json:"matched"`
	Documents []ticket.Document       `json:"documents"`
	Scores    []ticket.ScoredDocument `json:"scores"`
	Summary   string                  `json:"summary"`
	Fallback  bool                    `json:"fallback"`
}

// handleRetrieve previews what the drafting step would see for a ticket,
// without calling the text-generation provider.
func (a *API) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "ticket category is required", Field: "category"})
		return
	}

	cat, ok := ticket.ParseCategory(req.Category)
	query := ticket.Ticket{Subject: req.Subject, Description: req.Description}.QueryText()
	res := a.retriever.Retrieve(cat, query)

	docs := res.Documents
	if docs == nil {
		docs = []ticket.Document{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{
		Category:  cat,
		Matched:   ok,
		Documents: docs,
		Scores:    res.Scores,
		Summary:   res.Summary,
		Fallback:  res.Fallback,
	})
}

type categoryInfo struct {
	Name      ticket.Category `json:"name"`
	Key       string          `json:"key"`
	Documents []string        `json:"documents"`
}

func (a *API) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	cats := a.catalog.Categories()
	out := make([]categoryInfo, 0, len(cats))
	for _, c := range cats {
		docs := a.catalog.Lookup(c)
		titles := make([]string, 0, len(docs))
		for _, d := range docs {
			titles = append(titles, d.Title)
		}
		out = append(out, categoryInfo{Name: c, Key: c.Key(), Documents: titles})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}
