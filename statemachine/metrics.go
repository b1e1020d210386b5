package statemachine

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	causeNoTransition = "no_transition"
	causeGuard        = "guard"
)

var (
	eventsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "statemachine_events_total",
			Help: "Total number of events fired at state machines",
		},
		[]string{"machine", "state", "event", "outcome"},
	)

	transitionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "statemachine_transitions_total",
			Help: "Total number of committed state transitions",
		},
		[]string{"machine", "from_state", "to_state"},
	)

	rejectionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "statemachine_rejections_total",
			Help: "Total number of rejected events by cause",
		},
		[]string{"machine", "state", "event", "cause"},
	)

	fireDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Name:    "statemachine_fire_duration_seconds",
			Help:    "Duration of Fire calls including on-entry follow-ups",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"machine", "event", "outcome"},
	)

	serialPending = promauto.NewGaugeVec( //nolint:gochecknoglobals
		prometheus.GaugeOpts{
			Name: "statemachine_serial_pending",
			Help: "Events queued or running on a serial machine",
		},
		[]string{"machine"},
	)
)

func label(v any) string {
	s := fmt.Sprint(v)
	if s == "" {
		return "none"
	}

	return s
}

func recordEvent(machine, state, event string, outcome Outcome, duration time.Duration) {
	eventsTotal.WithLabelValues(machine, state, event, outcome.String()).Inc()
	fireDuration.WithLabelValues(machine, event, outcome.String()).Observe(duration.Seconds())
}

func recordTransition(machine, from, to string) {
	transitionsTotal.WithLabelValues(machine, from, to).Inc()
}

func recordRejection(machine, state, event, cause string) {
	rejectionsTotal.WithLabelValues(machine, state, event, cause).Inc()
}
