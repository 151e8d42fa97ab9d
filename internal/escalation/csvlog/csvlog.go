// Package csvlog appends escalation records to a human-reviewable CSV file.
package csvlog

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

// DefaultPath is the log file used when none is configured.
const DefaultPath = "escalation_log.csv"

// Header is the fixed column set, in file order.
var Header = []string{
	"timestamp",
	"subject",
	"description",
	"category",
	"attempts",
	"final_draft",
	"reviewer_feedback",
	"retrieved_context",
}

// Sink appends one row per escalation. Rows are never rewritten.
type Sink struct {
	path string
	mu   sync.Mutex
}

// New returns a Sink writing to path (DefaultPath when empty). The file is
// created on first write.
func New(path string) *Sink {
	if path == "" {
		path = DefaultPath
	}
	return &Sink{path: path}
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string { return s.path }

// Record implements ticket.EscalationSink.
func (s *Sink) Record(_ context.Context, rec *ticket.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("csvlog: open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csvlog: stat %s: %w", s.path, err)
	}

	data, err := encode(rec, st.Size() == 0)
	if err != nil {
		return err
	}

	// one write per record keeps concurrent appenders from interleaving rows
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("csvlog: write %s: %w", s.path, err)
	}
	return f.Sync()
}

func encode(rec *ticket.EscalationRecord, withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if withHeader {
		if err := w.Write(Header); err != nil {
			return nil, fmt.Errorf("csvlog: encode header: %w", err)
		}
	}
	if err := w.Write(row(rec)); err != nil {
		return nil, fmt.Errorf("csvlog: encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csvlog: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func row(rec *ticket.EscalationRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Subject,
		rec.Description,
		rec.Category,
		strconv.Itoa(rec.Attempts),
		rec.FinalDraft,
		rec.ReviewerFeedback,
		rec.RetrievedContext,
	}
}
