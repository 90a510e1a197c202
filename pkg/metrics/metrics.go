// Package metrics instruments the session orchestrator's phases with
// Prometheus histograms, adapted from the teacher's pkg/metrics gauge/
// histogram registration pattern. axctl is a one-shot CLI, not a service
// with a scrape target, so there is no HTTP exporter here: when the
// operator passes --metrics, the registry is rendered once to stderr as
// plain text after the session ends.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"
)

// Phase identifies one timed stage of the session state machine.
type Phase string

const (
	PhaseProbe     Phase = "probe"
	PhaseUpload    Phase = "upload_settle"
	PhaseDial      Phase = "dial"
	PhaseHandshake Phase = "tls_handshake"
	PhaseForward   Phase = "forward"
	PhaseTeardown  Phase = "teardown"
)

// Recorder owns a private Prometheus registry scoped to one session, so
// repeated runs in-process (tests) never collide on metric registration.
type Recorder struct {
	registry  *prometheus.Registry
	durations *prometheus.HistogramVec
}

// NewRecorder builds a Recorder with a session-phase duration histogram.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axctl_session_phase_duration_seconds",
			Help:    "Duration of each shell bootstrap session phase.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"phase"},
	)
	registry.MustRegister(durations)

	return &Recorder{registry: registry, durations: durations}
}

// Observe records how long a phase took.
func (r *Recorder) Observe(phase Phase, d time.Duration) {
	r.durations.WithLabelValues(string(phase)).Observe(d.Seconds())
}

// Timer starts timing a phase; call the returned func when the phase ends.
func (r *Recorder) Timer(phase Phase) func() {
	start := time.Now()
	return func() {
		r.Observe(phase, time.Since(start))
	}
}

// WriteTo renders the registry in Prometheus text exposition format.
func (r *Recorder) WriteTo(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}
