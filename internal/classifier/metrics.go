package classifier

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alerty"

const (
	outcomeRemote          = "remote"
	outcomeNoCredential    = "no_credential"
	outcomeProviderError   = "provider_error"
	outcomeInvalidResponse = "invalid_response"
)

var (
	classifierResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "results_total",
			Help:      "Classification results by outcome",
		},
		[]string{"outcome"},
	)

	classifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "request_duration_seconds",
			Help:      "Time spent waiting for the remote classifier",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func recordResult(outcome string) {
	classifierResults.WithLabelValues(outcome).Inc()
}

func recordDuration(d time.Duration) {
	classifierDuration.Observe(d.Seconds())
}
