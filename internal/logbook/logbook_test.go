package logbook

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/irrigctl/internal/persist"
)

func newTestLogbook(store *persist.Memory) *Logbook {
	l := New(store)
	fixed := time.Date(2026, 8, 28, 6, 30, 0, 0, time.UTC)
	l.now = func() time.Time {
		fixed = fixed.Add(time.Minute)
		return fixed
	}
	return l
}

// peekStore decodes the last synced document back into a logbookFile.
func peekStore(t *testing.T, store *persist.Memory) logbookFile {
	t.Helper()
	var persisted logbookFile
	if err := yaml.Unmarshal(store.Bytes(), &persisted); err != nil {
		t.Fatalf("decode synced store: %v", err)
	}
	return persisted
}

func TestMarkStartedSyncs(t *testing.T) {
	store := &persist.Memory{}
	l := newTestLogbook(store)

	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("mark started: %v", err)
	}

	persisted := peekStore(t, store)
	idx := persisted.findMostRecent("any schedule")
	if idx < 0 {
		t.Fatalf("started record did not reach the store")
	}
	if persisted.Records[idx].Started == "" {
		t.Fatalf("record has no start time")
	}
	if persisted.Records[idx].Completed != "" {
		t.Fatalf("fresh record should not be completed")
	}
}

func TestMarkCompletedSyncs(t *testing.T) {
	store := &persist.Memory{}
	l := newTestLogbook(store)

	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	if err := l.MarkCompleted("any schedule"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	persisted := peekStore(t, store)
	idx := persisted.findMostRecent("any schedule")
	if idx < 0 || persisted.Records[idx].Completed == "" {
		t.Fatalf("completion did not reach the store")
	}
}

func TestMarkCompletedOfUnstartedScheduleFails(t *testing.T) {
	store := &persist.Memory{}
	l := newTestLogbook(store)

	err := l.MarkCompleted("any schedule")
	if !errors.Is(err, ErrNeverStarted) {
		t.Fatalf("expected ErrNeverStarted, got %v", err)
	}
	if len(store.Bytes()) != 0 {
		t.Fatalf("failed completion must not sync")
	}
}

func TestMarkCompletedTwiceFails(t *testing.T) {
	l := newTestLogbook(&persist.Memory{})

	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	if err := l.MarkCompleted("any schedule"); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := l.MarkCompleted("any schedule"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompletionTargetsMostRecentRecord(t *testing.T) {
	l := newTestLogbook(&persist.Memory{})

	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := l.MarkCompleted("any schedule"); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := l.MarkCompleted("any schedule"); err != nil {
		t.Fatalf("second completion should target the new record: %v", err)
	}

	records := l.Records()
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	for i, r := range records {
		if r.Completed == "" {
			t.Fatalf("record %d left incomplete", i)
		}
	}
}

func TestIncompleteFiltersCompletedRecords(t *testing.T) {
	l := newTestLogbook(&persist.Memory{})

	if err := l.MarkStarted("finished"); err != nil {
		t.Fatalf("start finished: %v", err)
	}
	if err := l.MarkCompleted("finished"); err != nil {
		t.Fatalf("complete finished: %v", err)
	}
	if err := l.MarkStarted("interrupted"); err != nil {
		t.Fatalf("start interrupted: %v", err)
	}

	incomplete := l.Incomplete()
	if len(incomplete) != 1 || incomplete[0].Name != "interrupted" {
		t.Fatalf("expected only the interrupted run, got %v", incomplete)
	}
}

func TestInitializeRoundTrip(t *testing.T) {
	store := &persist.Memory{}
	l := newTestLogbook(store)
	if err := l.MarkStarted("any schedule"); err != nil {
		t.Fatalf("mark started: %v", err)
	}

	fresh := New(&persist.Memory{})
	if err := fresh.Initialize(bytes.NewReader(store.Bytes())); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(fresh.Incomplete()) != 1 {
		t.Fatalf("expected the incomplete run to survive the round trip")
	}
}
