package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alerty"

const (
	resultAccepted  = "accepted"
	resultInvalid   = "invalid"
	resultBusy      = "busy"
	resultAbandoned = "abandoned"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "submissions_total",
			Help:      "Alert submissions by result",
		},
		[]string{"result"},
	)

	unhandledAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "unhandled",
			Help:      "Number of alerts not yet handled",
		},
	)

	criticalUnhandled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "critical_unhandled",
			Help:      "1 if any critical alert is unhandled, 0 otherwise",
		},
	)
)

func recordSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

func recordStoreState(store *MemoryStore) {
	unhandledAlerts.Set(float64(store.UnhandledCount()))
	if store.HasCriticalUnhandled() {
		criticalUnhandled.Set(1)
	} else {
		criticalUnhandled.Set(0)
	}
}
