// internal/ticket/engine.go
package ticket

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

const (
	// MaxAttempts is the hard cap on draft/review cycles per ticket.
	MaxAttempts = 2

	ResponseTokens         = 1024
	DefaultCallTimeout     = 60 * time.Second
	DefaultEscalationTries = 3
)

var tracer = otel.Tracer("github.com/linnemanlabs/helpdesk/internal/ticket")

var errEmptyResponse = errors.New("empty response")

// CompleteEvent summarizes a finished run for metrics.
type CompleteEvent struct {
	Status    Status
	Category  Category
	Attempts  int
	Duration  float64
	TokensIn  int
	TokensOut int
	Model     string
}

// EngineHooks are optional callbacks fired while the Engine runs. Nil fields are skipped.
type EngineHooks struct {
	OnLLMCall         func(step State, inputTokens, outputTokens int, duration float64, err error)
	OnTransition      func(from, to State)
	OnRetrieve        func(category Category, documents int, fallback bool)
	OnReview          func(attempt int, verdict Verdict)
	OnEscalationWrite func(tries int, err error)
	OnComplete        func(e *CompleteEvent)
}

// EngineOptions tunes collaborator and sink behaviour. Zero values select defaults.
type EngineOptions struct {
	// CallTimeout bounds every text-generation call.
	CallTimeout time.Duration
	// MaxTokens caps each generated response.
	MaxTokens int
	// EscalationTries is the total number of escalation write attempts (minimum 2).
	EscalationTries int
	// EscalationBackoff is the initial wait between escalation write attempts.
	EscalationBackoff time.Duration
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = ResponseTokens
	}
	if o.EscalationTries < 2 {
		o.EscalationTries = DefaultEscalationTries
	}
	if o.EscalationBackoff <= 0 {
		o.EscalationBackoff = 500 * time.Millisecond
	}
	return o
}

// Engine drives a single ticket through classify, retrieve, draft, review and
// then approve, retry or escalate. It holds no per-ticket state between runs.
type Engine struct {
	provider  Provider
	retriever Retriever
	sink      EscalationSink
	logger    log.Logger
	hooks     EngineHooks
	opts      EngineOptions
	now       func() time.Time
}

// NewEngine creates a new ticket engine with the given collaborators.
func NewEngine(provider Provider, retriever Retriever, sink EscalationSink, logger log.Logger, hooks EngineHooks, opts EngineOptions) *Engine {
	if provider == nil {
		panic(xerrors.New("text-generation provider is required"))
	}
	if retriever == nil {
		panic(xerrors.New("retriever is required"))
	}
	if sink == nil {
		panic(xerrors.New("escalation sink is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider:  provider,
		retriever: retriever,
		sink:      sink,
		logger:    logger,
		hooks:     hooks,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// Run executes the pipeline for one ticket. The returned RunResult is never
// nil. The error is a *CollaboratorError when generation failed (status
// failed) or an *EscalationWriteError when the hand-off record could not be
// persisted (status escalated, EscalationLogged false).
func (e *Engine) Run(ctx context.Context, id string, t Ticket) (*RunResult, error) {
	start := time.Now()
	rr := &RunResult{
		ID:        id,
		Status:    StatusInProgress,
		Ticket:    t,
		CreatedAt: start,
	}

	ctx, span := tracer.Start(ctx, "ticket.Run", trace.WithAttributes(
		attribute.String("helpdesk.ticket.id", id),
	))
	defer span.End()

	L := e.logger.With("ticket_id", id)
	L.Info(ctx, "ticket run started", "subject", t.Subject)

	err := e.run(ctx, L, rr)

	rr.CompletedAt = time.Now()
	rr.Duration = time.Since(start).Seconds()
	if err != nil {
		rr.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("helpdesk.ticket.status", string(rr.Status)),
		attribute.String("helpdesk.ticket.category", string(rr.Category)),
		attribute.Int("helpdesk.ticket.attempts", rr.AttemptCount),
	)

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Status:    rr.Status,
			Category:  rr.Category,
			Attempts:  rr.AttemptCount,
			Duration:  rr.Duration,
			TokensIn:  rr.TokensIn,
			TokensOut: rr.TokensOut,
			Model:     rr.Model,
		})
	}

	L.Info(ctx, "ticket run complete",
		"status", rr.Status,
		"category", rr.Category,
		"attempts", rr.AttemptCount,
		"duration", rr.Duration,
		"llm_calls", rr.LLMCalls,
		"tokens_in", rr.TokensIn,
		"tokens_out", rr.TokensOut,
	)
	return rr, err
}

func (e *Engine) run(ctx context.Context, L log.Logger, rr *RunResult) error {
	as := AttemptState{Number: 1, MaxAttempts: MaxAttempts}
	var draft string
	var escErr error

	state := StateClassifying
	for {
		rr.States = append(rr.States, state)

		var next State
		switch state {
		case StateClassifying:
			resp, err := e.call(ctx, rr, StateClassifying, 0, buildClassifyPrompt(rr.Ticket))
			if err != nil {
				rr.Status = StatusFailed
				return err
			}
			rr.RawCategory = firstLine(resp.Text)
			cat, ok := ParseCategory(rr.RawCategory)
			if !ok {
				L.Warn(ctx, "unrecognized category label, using fallback",
					"label", rr.RawCategory,
					"category", cat,
				)
			}
			rr.Category = cat
			L.Info(ctx, "ticket classified", "label", rr.RawCategory, "category", cat)
			next = StateRetrieving

		case StateRetrieving:
			rr.Retrieval = e.retrieve(ctx, rr)
			L.Info(ctx, "retrieved documents",
				"category", rr.Category,
				"documents", len(rr.Retrieval.Documents),
				"titles", rr.Retrieval.Titles(),
				"fallback", rr.Retrieval.Fallback,
			)
			next = StateDrafting

		case StateDrafting:
			prompt := buildDraftPrompt(rr.Ticket, rr.Category, rr.Retrieval.Documents, as.PrevFeedback, as.Number)
			resp, err := e.call(ctx, rr, StateDrafting, as.Number, prompt)
			if err != nil {
				rr.Status = StatusFailed
				return err
			}
			draft = strings.TrimSpace(resp.Text)
			L.Info(ctx, "draft generated", "attempt", as.Number, "draft_bytes", len(draft))
			next = StateReviewing

		case StateReviewing:
			attemptStart := time.Now()
			prompt := buildReviewPrompt(rr.Ticket, rr.Category, rr.Retrieval.Documents, draft, as.Number)
			resp, err := e.call(ctx, rr, StateReviewing, as.Number, prompt)
			if err != nil {
				rr.Status = StatusFailed
				return err
			}
			review := parseReview(resp.Text)

			rr.Attempts = append(rr.Attempts, Attempt{
				Number:   as.Number,
				Draft:    draft,
				Review:   review,
				Duration: time.Since(attemptStart).Seconds(),
			})
			rr.AttemptCount = as.Number
			rr.FinalDraft = draft
			rr.Review = review
			if e.hooks.OnReview != nil {
				e.hooks.OnReview(as.Number, review.Verdict)
			}
			L.Info(ctx, "draft reviewed", "attempt", as.Number, "verdict", review.Verdict)

			switch {
			case review.Verdict == VerdictApproved:
				next = StateApproved
			case as.Number < as.MaxAttempts:
				next = StateRetrying
			default:
				next = StateEscalating
			}

		case StateRetrying:
			// one increment per rejection; the feedback rides along to the next draft
			as.Number++
			as.PrevFeedback = rr.Review.Feedback
			next = StateDrafting

		case StateApproved:
			rr.Status = StatusApproved
			next = StateDone

		case StateEscalating:
			rr.Status = StatusEscalated
			escErr = e.escalate(ctx, L, rr)
			next = StateDone

		case StateDone:
			return escErr
		}

		if e.hooks.OnTransition != nil {
			e.hooks.OnTransition(state, next)
		}
		state = next
	}
}

func (e *Engine) retrieve(ctx context.Context, rr *RunResult) RetrievalResult {
	_, span := tracer.Start(ctx, "ticket.retrieve", trace.WithAttributes(
		attribute.String("helpdesk.ticket.category", string(rr.Category)),
	))
	defer span.End()

	res := e.retriever.Retrieve(rr.Category, rr.Ticket.QueryText())
	span.SetAttributes(
		attribute.Int("helpdesk.retrieval.documents", len(res.Documents)),
		attribute.Bool("helpdesk.retrieval.fallback", res.Fallback),
	)
	if e.hooks.OnRetrieve != nil {
		e.hooks.OnRetrieve(rr.Category, len(res.Documents), res.Fallback)
	}
	return res
}

// call sends one prompt under the per-call timeout and folds usage into rr.
func (e *Engine) call(ctx context.Context, rr *RunResult, step State, attempt int, prompt string) (*LLMResponse, error) {
	ctx, span := tracer.Start(ctx, "ticket."+string(step), trace.WithAttributes(
		attribute.Int("helpdesk.ticket.attempt", attempt),
	))
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	temperature := 0.0
	start := time.Now()
	resp, err := e.provider.Send(cctx, &LLMRequest{
		MaxTokens:   e.opts.MaxTokens,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: &temperature,
	})
	dur := time.Since(start).Seconds()
	rr.LLMCalls++

	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = errEmptyResponse
	}
	if err != nil {
		if cctx.Err() != nil && !errors.Is(err, cctx.Err()) {
			err = errors.Join(err, cctx.Err())
		}
		if e.hooks.OnLLMCall != nil {
			e.hooks.OnLLMCall(step, 0, 0, dur, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error(ctx, err, "llm call failed", "ticket_id", rr.ID, "step", step, "attempt", attempt)
		return nil, &CollaboratorError{Step: step, Attempt: attempt, Err: err}
	}

	rr.TokensIn += resp.Usage.InputTokens
	rr.TokensOut += resp.Usage.OutputTokens
	if resp.Model != "" {
		rr.Model = resp.Model
	}
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(step, resp.Usage.InputTokens, resp.Usage.OutputTokens, dur, nil)
	}
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	return resp, nil
}

// escalate records the terminal state, retrying with backoff. It is reached
// at most once per run.
func (e *Engine) escalate(ctx context.Context, L log.Logger, rr *RunResult) error {
	// a caller hanging up must not lose the hand-off record
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "ticket.escalate")
	defer span.End()

	rec := NewEscalationRecord(rr, e.now())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.EscalationBackoff

	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		err := e.sink.Record(ctx, rec)
		if err != nil {
			L.Warn(ctx, "escalation write failed", "try", tries, "max_tries", e.opts.EscalationTries, "error", err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.opts.EscalationTries)), //nolint:gosec // G115: EscalationTries >= 2 after defaults
	)

	if e.hooks.OnEscalationWrite != nil {
		e.hooks.OnEscalationWrite(tries, err)
	}
	span.SetAttributes(attribute.Int("helpdesk.escalation.tries", tries))

	// the primary holds the record; secondary outages are reported, not fatal
	var secondary *SecondarySinkError
	if errors.As(err, &secondary) {
		span.RecordError(err)
		L.Warn(ctx, "escalation recorded by primary sink only",
			"escalation_id", rec.ID,
			"tries", tries,
			"error", err,
		)
		err = nil
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		L.Error(ctx, err, "escalation record lost", "tries", tries)
		return &EscalationWriteError{Tries: tries, Err: err}
	}

	rr.EscalationLogged = true
	L.Info(ctx, "ticket escalated for human review",
		"escalation_id", rec.ID,
		"attempts", rec.Attempts,
		"tries", tries,
	)
	return nil
}
