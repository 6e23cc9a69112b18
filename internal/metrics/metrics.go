package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amaze",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "amaze",
			Name:      "reservation_created_total",
			Help:      "Count of reservations successfully written.",
		},
	)

	reservationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amaze",
			Name:      "reservation_rejected_total",
			Help:      "Count of reservation attempts rejected by reason.",
		},
		[]string{"reason"},
	)

	closureEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "amaze",
			Name:      "closure_events_created_total",
			Help:      "Count of expanded closure events written.",
		},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amaze",
			Name:      "store_errors_total",
			Help:      "Count of event store failures by operation.",
		},
		[]string{"op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationCreated, reservationRejected, closureEvents, storeErrors)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationCreated() {
	reservationCreated.Inc()
}

func IncReservationRejected(reason string) {
	reservationRejected.WithLabelValues(reason).Inc()
}

func AddClosureEvents(n int) {
	closureEvents.Add(float64(n))
}

func IncStoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}
