package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event is a trigger telemetry kind.
type Event string

const (
	EventHover  Event = "hover"
	EventClick  Event = "click"
	EventScroll Event = "scroll"
)

// Recorder counts trigger events. A nil Recorder drops everything, so
// callers never need to guard.
type Recorder struct {
	events *prometheus.CounterVec
}

// NewRecorder registers the trigger counters on reg. Pass
// prometheus.DefaultRegisterer in production.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_trigger_events_total",
				Help: "Trigger telemetry events by kind",
			},
			[]string{"kind"},
		),
	}
}

// Record counts one event.
func (r *Recorder) Record(kind Event) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(string(kind)).Inc()
}
