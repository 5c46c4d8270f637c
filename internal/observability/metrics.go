package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	valveSwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irrigctl",
			Subsystem: "valve",
			Name:      "switches_total",
			Help:      "Valve state changes, by valve and resulting state.",
		},
		[]string{"valve", "open"},
	)
	scheduleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irrigctl",
			Subsystem: "schedule",
			Name:      "run_events_total",
			Help:      "Schedule run lifecycle events recorded in the logbook.",
		},
		[]string{"schedule", "event"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "irrigctl",
			Subsystem: "schedule",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of completed schedule runs.",
			Buckets:   prometheus.ExponentialBuckets(60, 2, 10),
		},
		[]string{"schedule"},
	)
	syncFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irrigctl",
			Subsystem: "persist",
			Name:      "sync_failures_total",
			Help:      "Failed whole-document syncs, by store.",
		},
		[]string{"store"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(valveSwitches, scheduleRuns, runDuration, syncFailures)
	})
}

func RecordValveSwitch(valve string, open bool) {
	RegisterMetrics()
	valveSwitches.WithLabelValues(valve, strconv.FormatBool(open)).Inc()
}

func RecordScheduleRun(schedule, event string) {
	RegisterMetrics()
	scheduleRuns.WithLabelValues(schedule, event).Inc()
}

func RecordRunDuration(schedule string, duration time.Duration) {
	RegisterMetrics()
	runDuration.WithLabelValues(schedule).Observe(duration.Seconds())
}

func RecordSyncFailure(store string) {
	RegisterMetrics()
	syncFailures.WithLabelValues(store).Inc()
}
