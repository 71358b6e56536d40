package notifications

import (
	"github.com/bissquit/alerty/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alerty"

const (
	pathNone       = "none"
	pathBackground = "background"
	pathDirect     = "direct"
	pathLastResort = "last_resort"

	outcomeDelivered = "delivered"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

var (
	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dispatch_total",
			Help:      "Notification dispatch attempts by delivery path and outcome",
		},
		[]string{"path", "outcome"},
	)

	notificationPermission = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "permission",
			Help:      "Current notification permission state (1 for the active state)",
		},
		[]string{"state"},
	)
)

func recordDispatch(path, outcome string) {
	notificationsDispatched.WithLabelValues(path, outcome).Inc()
}

func recordPermission(current domain.Permission) {
	for _, p := range []domain.Permission{domain.PermissionDefault, domain.PermissionGranted, domain.PermissionDenied} {
		v := 0.0
		if p == current {
			v = 1
		}
		notificationPermission.WithLabelValues(string(p)).Set(v)
	}
}
