// Package metrics exposes Prometheus collectors for the turn engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	Turns            prometheus.Counter
	TurnDuration     prometheus.Histogram
	Decisions        *prometheus.CounterVec
	RiftsOpened      prometheus.Counter
	RiftsResolved    prometheus.Counter
	Paradoxes        *prometheus.GaugeVec
	Stability        *prometheus.GaugeVec
	OracleFallbacks  *prometheus.CounterVec
	StoreErrors      prometheus.Counter
	QuestsCompleted  prometheus.Counter
	DilemmasResolved prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Turns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_turns_total",
			Help: "Turns advanced across all games.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronocore_turn_duration_seconds",
			Help:    "Wall time of one AdvanceTurn call.",
			Buckets: prometheus.DefBuckets,
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronocore_decisions_total",
			Help: "Evaluated decisions by karma category.",
		}, []string{"category"}),
		RiftsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_rifts_opened_total",
			Help: "Time rifts generated.",
		}),
		RiftsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_rifts_resolved_total",
			Help: "Time rifts resolved by players.",
		}),
		Paradoxes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronocore_paradoxes",
			Help: "Paradoxes detected on the last analysis of each timeline.",
		}, []string{"game", "timeline"}),
		Stability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronocore_timeline_stability",
			Help: "Computed stability of each timeline at the end of its last turn.",
		}, []string{"game", "timeline"}),
		OracleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chronocore_oracle_fallbacks_total",
			Help: "Generated content replaced by a fallback record, by generator.",
		}, []string{"kind"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_store_errors_total",
			Help: "Failed loads and saves.",
		}),
		QuestsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_quests_completed_total",
			Help: "Quests completed by players.",
		}),
		DilemmasResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chronocore_dilemmas_resolved_total",
			Help: "Realm dilemmas resolved by players.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Turns, m.TurnDuration, m.Decisions, m.RiftsOpened, m.RiftsResolved,
		m.Paradoxes, m.Stability, m.OracleFallbacks, m.StoreErrors,
		m.QuestsCompleted, m.DilemmasResolved,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// OracleFallback counts one fallback of the given generator. It is shaped to
// plug into llm.Oracle.OnFallback.
func (m *Metrics) OracleFallback(kind string) {
	m.OracleFallbacks.WithLabelValues(kind).Inc()
}
