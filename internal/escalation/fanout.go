// Package escalation combines the escalation sinks a deployment enables.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// Named pairs a sink with the label used in errors and logs.
type Named struct {
	Name string
	Sink ticket.EscalationSink
}

// Fanout records every escalation to each configured sink. The first sink is
// the durable primary: its failure is returned as is, while failures of the
// others after the primary accepted the record come back as a
// *ticket.SecondarySinkError. A retried record (same ID) is only re-sent to
// the sinks that have not accepted it yet, so the engine's retry policy never
// duplicates rows in a sink that already succeeded.
type Fanout struct {
	sinks []Named

	mu      sync.Mutex
	pending map[string][]bool
}

// NewFanout returns a Fanout over sinks. The first sink is the durable primary.
func NewFanout(sinks ...Named) *Fanout {
	return &Fanout{
		sinks:   sinks,
		pending: make(map[string][]bool),
	}
}

// Len reports how many sinks are configured.
func (f *Fanout) Len() int { return len(f.sinks) }

// Names lists the configured sink names in order.
func (f *Fanout) Names() []string {
	out := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		out[i] = s.Name
	}
	return out
}

// Record implements ticket.EscalationSink.
func (f *Fanout) Record(ctx context.Context, rec *ticket.EscalationRecord) error {
	f.mu.Lock()
	done, ok := f.pending[rec.ID]
	if !ok {
		done = make([]bool, len(f.sinks))
	}
	f.mu.Unlock()

	var errs []error
	for i, s := range f.sinks {
		if done[i] {
			continue
		}
		if err := s.Sink.Record(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		done[i] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(errs) == 0 {
		delete(f.pending, rec.ID)
		return nil
	}
	f.pending[rec.ID] = done
	err := errors.Join(errs...)
	if len(done) > 0 && done[0] {
		return &ticket.SecondarySinkError{Err: err}
	}
	return err
}
