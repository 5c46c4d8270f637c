// Package taskmaster owns the background schedule evaluator.
//
// Ownership boundary:
// - deciding when a configured schedule is due
// - opening/shutting the schedule's valves around a run
// - recording run starts and completions in the logbook
// - resuming runs that were interrupted by a restart
//
// The taskmaster is the one service here that launches a background unit of
// work. The loop reaches its sibling services only through the kit's
// back-reference and stops through its own context, never through the
// environment.
package taskmaster

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/irrigctl/internal/calendar"
	"github.com/danmuck/irrigctl/internal/config"
	"github.com/danmuck/irrigctl/internal/environment"
	"github.com/danmuck/irrigctl/internal/logbook"
	"github.com/danmuck/irrigctl/internal/observability"
	"github.com/danmuck/irrigctl/internal/valve"
)

const (
	MinutesPerHour = 60
	HoursPerDay    = 24
	MinutesPerDay  = MinutesPerHour * HoursPerDay

	secondsPerDay = 24 * 60 * 60
)

// activeRun tracks one schedule currently watering.
type activeRun struct {
	valves    []string
	startedAt time.Time
	endsAt    time.Time
}

// Taskmaster polls the calendar and drives valves and logbook accordingly.
type Taskmaster struct {
	kit  *environment.Kit
	tick time.Duration
	now  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}

	// Loop-private state; only the run goroutine touches these.
	active    map[string]*activeRun
	lastCycle map[string]int64
	resumed   bool
}

// Start returns the construction hook for the taskmaster. Its construction
// declares the calendar, logbook, and valve services as dependencies (so
// they are fully constructed first) and launches the polling loop. Ticks
// that fire before the bootstrap is sealed are skipped, since the
// environment rejects access during bootstrap.
func Start(cfg config.ControllerConfig) environment.StartFunc[*Taskmaster] {
	return func(env *environment.Environment, ed *environment.Editor) *Taskmaster {
		kb := environment.NewKit(env, ed)
		environment.WithDependency(kb, calendar.Start(cfg.SchedulePath))
		environment.WithDependency(kb, logbook.Start(cfg.LogbookPath))
		environment.WithDependency(kb, valve.Start(cfg.Valves))

		ctx, cancel := context.WithCancel(context.Background())
		t := newTaskmaster(kb.Build(), time.Duration(cfg.TickSeconds)*time.Second)
		t.cancel = cancel
		go t.run(ctx)
		return t
	}
}

func newTaskmaster(kit *environment.Kit, tick time.Duration) *Taskmaster {
	return &Taskmaster{
		kit:       kit,
		tick:      tick,
		now:       time.Now,
		done:      make(chan struct{}),
		active:    make(map[string]*activeRun),
		lastCycle: make(map[string]int64),
	}
}

// Stop cancels the polling loop and waits for it to exit. Any valves the
// loop opened stay in their current state; shutdown valve handling belongs
// to the caller tearing the process down.
func (t *Taskmaster) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	<-t.done
}

func (t *Taskmaster) run(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	log.Info().Dur("tick", t.tick).Msg("taskmaster loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("taskmaster loop stopped")
			return
		case <-ticker.C:
			if !t.kit.Environment().Sealed() {
				continue
			}
			if !t.resumed {
				t.beginUnfinishedSchedules()
				t.resumed = true
			}
			t.evaluateSchedules(t.now())
		}
	}
}

// evaluateSchedules finishes overdue runs, then starts any schedule whose
// cycle position matches its start offset. A schedule fires at most once
// per repeat cycle; a tick that lands past the due minute misses the run
// rather than firing late.
func (t *Taskmaster) evaluateSchedules(now time.Time) {
	t.finishElapsedRuns(now)

	env := t.kit.Environment()
	ch := environment.Shared[*calendar.Calendar](env)
	schedules := ch.Value().Schedules()
	ch.Release()

	for _, s := range schedules {
		if _, running := t.active[s.Name]; running {
			continue
		}
		pos, cycle, ok := cyclePosition(s, now)
		if !ok {
			continue
		}
		if pos != int64(s.StartOffsetMin)%cycleLengthMin(s) {
			continue
		}
		if last, seen := t.lastCycle[s.Name]; seen && last == cycle {
			continue
		}
		t.lastCycle[s.Name] = cycle
		t.startRun(s, now, time.Duration(s.DurationMin)*time.Minute, true)
	}
}

// finishElapsedRuns shuts valves and records completion for every active
// run whose duration has elapsed.
func (t *Taskmaster) finishElapsedRuns(now time.Time) {
	for name, run := range t.active {
		if now.Before(run.endsAt) {
			continue
		}
		t.setValves(run.valves, false)

		env := t.kit.Environment()
		lh := environment.Exclusive[*logbook.Logbook](env)
		if err := lh.Value().MarkCompleted(name); err != nil {
			log.Error().Err(err).Str("schedule", name).Msg("taskmaster: completion not recorded")
		}
		lh.Release()

		observability.RecordRunDuration(name, now.Sub(run.startedAt))
		log.Info().Str("schedule", name).Msg("schedule run finished")
		delete(t.active, name)
	}
}

// beginUnfinishedSchedules resumes runs that were started but never
// completed, typically because the controller restarted mid-run. Resumed
// runs water for their full duration again; the soil will cope.
func (t *Taskmaster) beginUnfinishedSchedules() {
	env := t.kit.Environment()

	lh := environment.Shared[*logbook.Logbook](env)
	incomplete := lh.Value().Incomplete()
	lh.Release()
	if len(incomplete) == 0 {
		return
	}

	ch := environment.Shared[*calendar.Calendar](env)
	cal := ch.Value()
	for _, rec := range incomplete {
		s, ok := cal.Lookup(rec.Name)
		if !ok {
			log.Warn().Str("schedule", rec.Name).Msg("taskmaster: unfinished run for unknown schedule")
			continue
		}
		if _, running := t.active[s.Name]; running {
			continue
		}
		log.Info().Str("schedule", s.Name).Msg("resuming unfinished schedule")
		t.startRun(s, t.now(), time.Duration(s.DurationMin)*time.Minute, false)
	}
	ch.Release()
}

// startRun opens the schedule's valves and tracks the run until its
// duration elapses. When record is set, the start is written to the
// logbook; resumed runs already have their started record.
func (t *Taskmaster) startRun(s calendar.Schedule, now time.Time, duration time.Duration, record bool) {
	log.Info().Str("schedule", s.Name).Strs("valves", s.Valves).Msg("starting schedule run")
	t.setValves(s.Valves, true)

	if record {
		env := t.kit.Environment()
		lh := environment.Exclusive[*logbook.Logbook](env)
		if err := lh.Value().MarkStarted(s.Name); err != nil {
			log.Error().Err(err).Str("schedule", s.Name).Msg("taskmaster: start not recorded")
		}
		lh.Release()
	}

	t.active[s.Name] = &activeRun{
		valves:    s.Valves,
		startedAt: now,
		endsAt:    now.Add(duration),
	}
}

// setValves opens or shuts the named valves. A missing or failing valve is
// logged and skipped; the rest of the group still switches.
func (t *Taskmaster) setValves(names []string, open bool) {
	env := t.kit.Environment()
	vh := environment.Exclusive[*valve.Valves](env)
	defer vh.Release()

	for _, name := range names {
		v, ok := vh.Value().Get(name)
		if !ok {
			log.Error().Str("valve", name).Msg("taskmaster: schedule references unknown valve")
			continue
		}
		var err error
		if open {
			err = v.Open()
		} else {
			err = v.Shut()
		}
		if err != nil {
			log.Error().Err(err).Str("valve", name).Msg("taskmaster: valve switch failed")
		}
	}
}

func cycleLengthMin(s calendar.Schedule) int64 {
	return int64(s.RepeatPeriodDays) * MinutesPerDay
}

// cyclePosition locates now within the schedule's repeat cycle. It returns
// the minute position inside the cycle, the cycle ordinal (used to fire at
// most once per cycle), and whether the schedule has a usable period.
func cyclePosition(s calendar.Schedule, now time.Time) (pos, cycle int64, ok bool) {
	cycleLen := cycleLengthMin(s)
	if cycleLen == 0 {
		return 0, 0, false
	}
	y, mo, d := now.Date()
	midnight := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	days := midnight.Unix() / secondsPerDay
	minuteOfDay := int64(now.Sub(midnight) / time.Minute)
	total := days*MinutesPerDay + minuteOfDay
	return total % cycleLen, total / cycleLen, true
}
