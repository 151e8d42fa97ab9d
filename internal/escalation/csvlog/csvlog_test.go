package csvlog

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

func testRecord() *ticket.EscalationRecord {
	return &ticket.EscalationRecord{
		ID:               "rec-1",
		TicketID:         "01JN",
		Timestamp:        time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Subject:          "Charged twice",
		Description:      "Billed twice, \"urgent\",\nplease help",
		Category:         "Billing",
		Attempts:         2,
		FinalDraft:       "We are sorry, refund issued.",
		ReviewerFeedback: "rejected: cannot promise refunds",
		RetrievedContext: "Retrieved 1 relevant documents for category 'billing': Our refund policy ...",
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestRecord_CreatesFileWithHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.csv")
	s := New(path)

	if err := s.Record(context.Background(), testRecord()); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v, want %v", rows[0], Header)
	}
	want := []string{
		"2026-03-01T09:30:00Z",
		"Charged twice",
		"Billed twice, \"urgent\",\nplease help",
		"Billing",
		"2",
		"We are sorry, refund issued.",
		"rejected: cannot promise refunds",
		"Retrieved 1 relevant documents for category 'billing': Our refund policy ...",
	}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row = %q, want %q", rows[1], want)
	}
}

func TestRecord_IdenticalRecordsAppendTwoRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.csv")
	s := New(path)
	rec := testRecord()

	for i := 0; i < 2; i++ {
		if err := s.Record(context.Background(), rec); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if !reflect.DeepEqual(rows[1], rows[2]) {
		t.Error("expected two identical rows")
	}
}

func TestRecord_ExistingFileNoSecondHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.csv")
	if err := New(path).Record(context.Background(), testRecord()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// a fresh sink over the same file appends without a header
	if err := New(path).Record(context.Background(), testRecord()); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if reflect.DeepEqual(rows[2], Header) {
		t.Error("header written twice")
	}
}

func TestRecord_EmptyFileGetsHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.csv")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := New(path).Record(context.Background(), testRecord()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	rows := readAll(t, path)
	if len(rows) != 2 || !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("rows = %v, want header + row", rows)
	}
}

func TestRecord_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "escalations.csv")
	s := New(path)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Record(context.Background(), testRecord()); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	rows := readAll(t, path)
	if len(rows) != n+1 {
		t.Fatalf("rows = %d, want %d", len(rows), n+1)
	}
	for i, r := range rows[1:] {
		if len(r) != len(Header) {
			t.Errorf("row %d has %d columns", i, len(r))
		}
	}
}

func TestRecord_UnwritablePath(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "missing-dir", "escalations.csv"))
	if err := s.Record(context.Background(), testRecord()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNew_DefaultPath(t *testing.T) {
	t.Parallel()

	if got := New("").Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}
}
