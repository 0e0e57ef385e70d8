package versync

import (
	"github.com/drpcorg/versync/schema"
	"github.com/prometheus/client_golang/prometheus"
)

var DiffsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "versync",
	Subsystem: "replicator",
	Name:      "diffs_generated",
}, []string{"kind"})

var DiffsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "versync",
	Subsystem: "replicator",
	Name:      "diffs_applied",
}, []string{"kind"})

var ApplyErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "versync",
	Subsystem: "replicator",
	Name:      "apply_errors",
}, []string{"kind"})

var HistoryResets = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "versync",
	Subsystem: "action_log",
	Name:      "history_resets",
}, []string{"kind"})

var ActionLogLength = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "versync",
	Subsystem: "action_log",
	Name:      "length",
	Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
}, []string{"kind"})

// Metrics lists every collector of the package, for registration.
func Metrics() []prometheus.Collector {
	return []prometheus.Collector{DiffsGenerated, DiffsApplied, ApplyErrors, HistoryResets, ActionLogLength}
}

func observe(kind schema.Kind, d Diff) Diff {
	if d != nil {
		DiffsGenerated.WithLabelValues(kind.String()).Inc()
	}
	return d
}

func observeApply(kind schema.Kind, err error) error {
	if err != nil {
		ApplyErrors.WithLabelValues(kind.String()).Inc()
	} else {
		DiffsApplied.WithLabelValues(kind.String()).Inc()
	}
	return err
}

func observeHistory(kind schema.Kind, n int) {
	ActionLogLength.WithLabelValues(kind.String()).Observe(float64(n))
}

func historyReset(kind schema.Kind) {
	HistoryResets.WithLabelValues(kind.String()).Inc()
}
