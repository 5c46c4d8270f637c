// Package logbook owns the run-history store: one record per schedule run,
// marking start and completion times, synced to YAML on every write.
package logbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/irrigctl/internal/environment"
	"github.com/danmuck/irrigctl/internal/observability"
	"github.com/danmuck/irrigctl/internal/persist"
)

var (
	// ErrNeverStarted means a completion was recorded for a schedule with
	// no started record.
	ErrNeverStarted = errors.New("logbook: schedule was never started")

	// ErrAlreadyCompleted means the most recent record for the schedule
	// already carries a completion time.
	ErrAlreadyCompleted = errors.New("logbook: schedule already completed")
)

// Record tracks when one schedule run started and completed. Empty fields
// mean the event has not happened.
type Record struct {
	Name      string `yaml:"name"`
	Started   string `yaml:"started,omitempty"`
	Completed string `yaml:"completed,omitempty"`
}

type logbookFile struct {
	Records []Record `yaml:"records"`
}

// findMostRecent returns the index of the newest record for name, or -1.
func (f *logbookFile) findMostRecent(name string) int {
	for i := len(f.Records) - 1; i >= 0; i-- {
		if f.Records[i].Name == name {
			return i
		}
	}
	return -1
}

// Logbook caches run records in memory and syncs the whole document on
// every mutation. Like the calendar it carries no lock of its own; the
// environment's slot gate arbitrates access.
type Logbook struct {
	cache logbookFile
	store persist.Store
	now   func() time.Time
}

// New creates an empty logbook backed by store.
func New(store persist.Store) *Logbook {
	return &Logbook{store: store, now: time.Now}
}

// Start returns the construction hook registering a logbook persisted at
// path. An existing document is loaded; a missing file starts it empty.
func Start(path string) environment.StartFunc[*Logbook] {
	return func(env *environment.Environment, ed *environment.Editor) *Logbook {
		l := New(persist.File{Path: path})
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatal().Err(err).Str("path", path).Msg("logbook: cannot open record store")
			}
			return l
		}
		defer f.Close()
		if err := l.Initialize(f); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("logbook: record store is unreadable")
		}
		return l
	}
}

// MarkStarted appends a started record for the schedule with the current
// time and syncs.
func (l *Logbook) MarkStarted(name string) error {
	now := l.now().Format(time.RFC1123Z)
	log.Info().Str("schedule", name).Str("at", now).Msg("marking schedule started")

	l.cache.Records = append(l.cache.Records, Record{Name: name, Started: now})
	observability.RecordScheduleRun(name, "started")
	return l.sync()
}

// MarkCompleted stamps the most recent record for the schedule with the
// current time and syncs. It refuses schedules that were never started or
// whose latest record is already completed; nothing is synced in either
// case.
func (l *Logbook) MarkCompleted(name string) error {
	now := l.now().Format(time.RFC1123Z)
	log.Info().Str("schedule", name).Str("at", now).Msg("marking schedule completed")

	idx := l.cache.findMostRecent(name)
	if idx < 0 {
		log.Error().Str("schedule", name).Msg("no record found, never started")
		return fmt.Errorf("%w: %s", ErrNeverStarted, name)
	}
	if l.cache.Records[idx].Completed != "" {
		log.Error().Str("schedule", name).
			Str("completed", l.cache.Records[idx].Completed).
			Msg("record was already completed")
		return fmt.Errorf("%w: %s", ErrAlreadyCompleted, name)
	}

	l.cache.Records[idx].Completed = now
	observability.RecordScheduleRun(name, "completed")
	return l.sync()
}

// Records returns a snapshot of all records, oldest first.
func (l *Logbook) Records() []Record {
	out := make([]Record, len(l.cache.Records))
	copy(out, l.cache.Records)
	return out
}

// Incomplete returns the records that were started but never completed.
func (l *Logbook) Incomplete() []Record {
	var out []Record
	for _, r := range l.cache.Records {
		if r.Completed == "" {
			out = append(out, r)
		}
	}
	return out
}

// Initialize replaces the in-memory cache from a persisted YAML document,
// usually on upstart.
func (l *Logbook) Initialize(source io.Reader) error {
	var loaded logbookFile
	if err := yaml.NewDecoder(source).Decode(&loaded); err != nil {
		return fmt.Errorf("logbook: decode record store: %w", err)
	}
	l.cache = loaded
	return nil
}

// sync writes the full in-memory cache to persistent storage.
func (l *Logbook) sync() error {
	data, err := yaml.Marshal(&l.cache)
	if err != nil {
		return fmt.Errorf("logbook: encode record store: %w", err)
	}
	if err := l.store.Replace(data); err != nil {
		observability.RecordSyncFailure("logbook")
		return fmt.Errorf("logbook: sync record store: %w", err)
	}
	return nil
}
