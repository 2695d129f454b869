package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DoyleJ11/lol-pick/internal/engine"
)

// Metrics groups the collectors the lobbies report to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rolls     prometheus.Counter
	unfilled  *prometheus.CounterVec
	rollSize  prometheus.Histogram
	lobbies   prometheus.Gauge
	storeErrs *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lolpick",
			Name:      "rolls_total",
			Help:      "Completed role rolls.",
		}),
		unfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lolpick",
			Name:      "roles_unfilled_total",
			Help:      "Roles left without a player after a roll.",
		}, []string{"role"}),
		rollSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lolpick",
			Name:      "roll_roster_size",
			Help:      "Number of players in rolled rosters.",
			Buckets:   prometheus.LinearBuckets(0, 1, engine.Slots+1),
		}),
		lobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lolpick",
			Name:      "lobbies",
			Help:      "Lobbies currently open.",
		}),
		storeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lolpick",
			Name:      "store_errors_total",
			Help:      "Roster store failures by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.rolls, m.unfilled, m.rollSize, m.lobbies, m.storeErrs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRoll(events []engine.Event, players int) {
	if m == nil {
		return
	}
	m.rolls.Inc()
	m.rollSize.Observe(float64(players))
	for _, e := range events {
		if e.Type == engine.EvtRoleUnfilled {
			m.unfilled.WithLabelValues(string(e.Role)).Inc()
		}
	}
}

func (m *Metrics) LobbyOpened() {
	if m == nil {
		return
	}
	m.lobbies.Inc()
}

func (m *Metrics) LobbyClosed() {
	if m == nil {
		return
	}
	m.lobbies.Dec()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrs.WithLabelValues(op).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
