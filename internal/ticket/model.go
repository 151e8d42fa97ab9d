package ticket

import (
	"strings"
	"time"
)

// Status tracks where a ticket run is in its lifecycle.
type Status string

const (
	// StatusInProgress means the state machine is running
	StatusInProgress Status = "in_progress"

	// StatusApproved means a draft passed review
	StatusApproved Status = "approved"

	// StatusEscalated means every attempt was rejected and the ticket was handed to a human
	StatusEscalated Status = "escalated"

	// StatusFailed means a collaborator fault ended the run
	StatusFailed Status = "failed"
)

// Ticket is a customer support request. It is never mutated once submitted.
type Ticket struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// Validate reports a *ValidationError when a required field is blank.
func (t Ticket) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return &ValidationError{Field: "subject"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description"}
	}
	return nil
}

// QueryText is the text retrieval scores documents against.
func (t Ticket) QueryText() string {
	return t.Subject + " " + t.Description
}

// Document is a static knowledge base snippet.
type Document struct {
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ScoredDocument pairs a candidate document with its relevance score.
type ScoredDocument struct {
	Document Document `json:"-"`
	Title    string   `json:"title"`
	Score    int      `json:"score"`
}

// RetrievalResult is the bounded, relevance-ordered context for one ticket.
type RetrievalResult struct {
	Documents []Document       `json:"documents"`
	Scores    []ScoredDocument `json:"scores,omitempty"`
	Summary   string           `json:"summary"`
	Fallback  bool             `json:"fallback,omitempty"`
}

// Titles returns the titles of the selected documents in order.
func (r RetrievalResult) Titles() []string {
	out := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		out = append(out, d.Title)
	}
	return out
}

// Contents returns the content of the selected documents in order.
func (r RetrievalResult) Contents() []string {
	out := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		out = append(out, d.Content)
	}
	return out
}

// Verdict is the semantic outcome of a review.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// Review is the reviewer's verdict on one draft.
type Review struct {
	Verdict  Verdict `json:"verdict"`
	Feedback string  `json:"feedback"`
}

// Attempt records one draft+review cycle.
type Attempt struct {
	Number   int     `json:"number"`
	Draft    string  `json:"draft"`
	Review   Review  `json:"review"`
	Duration float64 `json:"duration_seconds"`
}

// AttemptState is owned by the Engine. Number only grows, and only when a
// rejection sends the run back to drafting.
type AttemptState struct {
	Number       int    `json:"number"`
	MaxAttempts  int    `json:"max_attempts"`
	PrevFeedback string `json:"previous_feedback,omitempty"`
}

// State is a node of the pipeline state machine.
type State string

const (
	StateClassifying State = "classifying"
	StateRetrieving  State = "retrieving"
	StateDrafting    State = "drafting"
	StateReviewing   State = "reviewing"
	StateApproved    State = "approved"
	StateRetrying    State = "retrying"
	StateEscalating  State = "escalating"
	StateDone        State = "done"
)

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	ID               string          `json:"id"`
	Status           Status          `json:"status"`
	Ticket           Ticket          `json:"ticket"`
	RawCategory      string          `json:"raw_category"`
	Category         Category        `json:"category"`
	Retrieval        RetrievalResult `json:"retrieval"`
	Attempts         []Attempt       `json:"attempts"`
	AttemptCount     int             `json:"attempt_count"`
	FinalDraft       string          `json:"final_draft"`
	Review           Review          `json:"review"`
	States           []State         `json:"states"`
	EscalationLogged bool            `json:"escalation_logged"`
	Error            string          `json:"error,omitempty"`
	Model            string          `json:"model,omitempty"`
	LLMCalls         int             `json:"llm_calls"`
	TokensIn         int             `json:"tokens_in"`
	TokensOut        int             `json:"tokens_out"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      time.Time       `json:"completed_at,omitzero"`
	Duration         float64         `json:"duration_seconds"`
}

// Visited reports how many times the run entered state s.
func (r *RunResult) Visited(s State) int {
	n := 0
	for _, v := range r.States {
		if v == s {
			n++
		}
	}
	return n
}
