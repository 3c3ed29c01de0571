package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CycleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signal_engine",
			Subsystem: "runner",
			Name:      "cycle_latency_seconds",
			Help:      "Latency of one symbol cycle",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	CycleStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signal_engine",
			Subsystem: "runner",
			Name:      "cycles_total",
			Help:      "Symbol cycles by final status",
		},
		[]string{"symbol", "status"},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "signal_engine",
			Subsystem: "runner",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a whole tick over all symbols",
			Buckets:   prometheus.DefBuckets,
		},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "signal_engine",
			Subsystem: "book",
			Name:      "open_positions",
			Help:      "Open PROBE/FULL positions",
		},
	)

	Intents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signal_engine",
			Subsystem: "book",
			Name:      "intents_total",
			Help:      "Applied lifecycle intents",
		},
		[]string{"kind"},
	)

	DispatcherDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "signal_engine",
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Events dropped because the queue was full",
		},
	)

	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signal_engine",
			Subsystem: "feed",
			Name:      "fetch_errors_total",
			Help:      "Candle fetch failures by timeframe",
		},
		[]string{"timeframe"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CycleLatency, CycleStatus, TickDuration, OpenPositions, Intents, DispatcherDropped, FetchErrors)
	})
}
