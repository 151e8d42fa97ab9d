package ticket

import (
	"context"
	"errors"
	"sync"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"
)

// Service is the business boundary for ticket operations.
type Service struct {
	engine   *Engine
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier

	// runs are processed one at a time, start to finish
	mu sync.Mutex
}

// NewService creates a new ticket service. metrics and notifier may be nil.
func NewService(engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if engine == nil {
		panic(xerrors.New("ticket engine is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Submit validates a ticket and runs it through the pipeline. A
// *ValidationError means the pipeline never started and the result is nil.
// A caller whose context ends while waiting for an earlier run gets the
// context error and a nil result; nothing is sent to the provider.
// Any other error comes with a non-nil result describing how far the run got.
func (s *Service) Submit(ctx context.Context, t Ticket) (*RunResult, error) {
	if err := t.Validate(); err != nil {
		s.countSubmit("invalid")
		return nil, err
	}

	id := ulid.Make().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		s.countSubmit("canceled")
		return nil, err
	}

	s.countSubmit("accepted")
	rr, err := s.engine.Run(ctx, id, t)

	L := s.logger.With("ticket_id", id)

	var ewe *EscalationWriteError
	switch {
	case errors.As(err, &ewe):
		s.alert(ctx, L, rr, err)
	case rr.Status == StatusEscalated:
		s.notify(ctx, L, rr)
	}

	return rr, err
}

func (s *Service) notify(ctx context.Context, L log.Logger, rr *RunResult) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, rr)
	s.countNotification("escalation", err)
	if err != nil {
		L.Error(ctx, err, "failed to send escalation notification")
	}
}

func (s *Service) alert(ctx context.Context, L log.Logger, rr *RunResult, cause error) {
	if s.notifier == nil {
		L.Warn(ctx, "escalation record lost and no notifier configured", "error", cause)
		return
	}
	err := s.notifier.Alert(ctx, rr, cause)
	s.countNotification("alert", err)
	if err != nil {
		L.Error(ctx, errors.Join(err, cause), "failed to raise escalation write alert")
	}
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countNotification(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	s.metrics.NotificationsSent.WithLabelValues(kind, outcome).Inc()
}
