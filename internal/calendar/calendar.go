// Package calendar owns the named schedule store.
//
// Ownership boundary:
// - schedule create/replace/delete/list
// - sorted persist cache and YAML sync-on-write
//
// The calendar does not decide when schedules run; that is the taskmaster's
// concern.
package calendar

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/irrigctl/internal/environment"
	"github.com/danmuck/irrigctl/internal/observability"
	"github.com/danmuck/irrigctl/internal/persist"
)

// Schedule is one named watering schedule. Offsets and durations are in
// minutes; the repeat period is in days.
type Schedule struct {
	Name             string   `yaml:"name"`
	StartOffsetMin   uint64   `yaml:"start_offset_min"`
	DurationMin      uint64   `yaml:"duration_min"`
	RepeatPeriodDays uint64   `yaml:"repeat_period_days"`
	Valves           []string `yaml:"valves"`
}

// Calendar caches all configured schedules in memory and syncs the whole
// document to its store on every mutation. Access is mediated by the
// environment's slot gate: mutating methods require an exclusive handle,
// reads a shared one. The calendar itself carries no lock.
type Calendar struct {
	cache configFile
	store persist.Store
}

// New creates an empty calendar backed by store.
func New(store persist.Store) *Calendar {
	return &Calendar{
		cache: newConfigFile(configVersion),
		store: store,
	}
}

// Start returns the construction hook registering a calendar persisted at
// path. An existing document at path is loaded; a missing file starts the
// calendar empty.
func Start(path string) environment.StartFunc[*Calendar] {
	return func(env *environment.Environment, ed *environment.Editor) *Calendar {
		c := New(persist.File{Path: path})
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatal().Err(err).Str("path", path).Msg("calendar: cannot open schedule store")
			}
			return c
		}
		defer f.Close()
		if err := c.Initialize(f); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("calendar: schedule store is unreadable")
		}
		return c
	}
}

// CreateOrReplaceSchedule adds a schedule or overwrites the existing one
// with the same name, then syncs.
func (c *Calendar) CreateOrReplaceSchedule(s Schedule) error {
	log.Info().Str("schedule", s.Name).
		Uint64("start_offset_min", s.StartOffsetMin).
		Uint64("duration_min", s.DurationMin).
		Uint64("repeat_period_days", s.RepeatPeriodDays).
		Strs("valves", s.Valves).
		Msg("create or replace schedule")
	c.cache.upsertSchedule(s)
	return c.sync()
}

// DeleteSchedule removes the schedule by name if it exists, then syncs.
func (c *Calendar) DeleteSchedule(name string) error {
	log.Info().Str("schedule", name).Msg("delete schedule")
	c.cache.removeSchedule(name)
	return c.sync()
}

// Schedules returns a snapshot of all configured schedules, sorted by name.
func (c *Calendar) Schedules() []Schedule {
	out := make([]Schedule, len(c.cache.Schedules))
	for i, s := range c.cache.Schedules {
		out[i] = s
		out[i].Valves = slices.Clone(s.Valves)
	}
	return out
}

// Lookup returns the schedule with the given name.
func (c *Calendar) Lookup(name string) (Schedule, bool) {
	s, ok := c.cache.findSchedule(name)
	if ok {
		s.Valves = slices.Clone(s.Valves)
	}
	return s, ok
}

// Initialize replaces the in-memory cache from a persisted YAML document,
// usually on upstart.
func (c *Calendar) Initialize(source io.Reader) error {
	var loaded configFile
	if err := yaml.NewDecoder(source).Decode(&loaded); err != nil {
		return fmt.Errorf("calendar: decode schedule store: %w", err)
	}
	slices.SortFunc(loaded.Schedules, func(a, b Schedule) int {
		return compareByName(a, b.Name)
	})
	c.cache = loaded
	return nil
}

// sync writes the full in-memory cache to persistent storage.
func (c *Calendar) sync() error {
	data, err := yaml.Marshal(&c.cache)
	if err != nil {
		return fmt.Errorf("calendar: encode schedule store: %w", err)
	}
	if err := c.store.Replace(data); err != nil {
		observability.RecordSyncFailure("calendar")
		return fmt.Errorf("calendar: sync schedule store: %w", err)
	}
	return nil
}
