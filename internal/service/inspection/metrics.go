package inspection

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kromedia/neo/internal/simulation"
)

// Metrics exposes simulation and inspection counters.
type Metrics struct {
	ticks        prometheus.Counter
	attackOnsets prometheus.Counter
	integrity    *prometheus.CounterVec
	patches      prometheus.Counter
	inspections  *prometheus.CounterVec
	sessions     prometheus.Gauge
}

// NewMetrics registers the collectors on reg, reusing any already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "simulation",
			Name:      "ticks_total",
			Help:      "Committed simulation ticks.",
		}),
		attackOnsets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "simulation",
			Name:      "attack_onsets_total",
			Help:      "Oscillator transitions into an attack signal.",
		}),
		integrity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "simulation",
			Name:      "integrity_transitions_total",
			Help:      "Memory integrity transitions taken by the tick path.",
		}, []string{"to"}),
		patches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo",
			Subsystem: "simulation",
			Name:      "patches_total",
			Help:      "Autonomous patches applied.",
		}),
		inspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo",
			Name:      "inspections_total",
			Help:      "Report fetches by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo",
			Name:      "sessions_active",
			Help:      "Inspections with a live session.",
		}),
	}
	if reg == nil {
		return m
	}
	m.ticks = register(reg, m.ticks)
	m.attackOnsets = register(reg, m.attackOnsets)
	m.integrity = register(reg, m.integrity)
	m.patches = register(reg, m.patches)
	m.inspections = register(reg, m.inspections)
	m.sessions = register(reg, m.sessions)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeTick(res simulation.Result) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	if res.Event != nil {
		m.attackOnsets.Inc()
	}
	if res.IntegrityTo != "" {
		m.integrity.WithLabelValues(res.IntegrityTo).Inc()
	}
	if res.Patch != nil {
		m.patches.Inc()
	}
}

func (m *Metrics) observeFetch(outcome string) {
	if m == nil {
		return
	}
	m.inspections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}
