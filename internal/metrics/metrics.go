package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted after successful payment.",
		},
	)

	paymentsDeclined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "payments_declined_total",
			Help:      "Authorization requests declined by the payment provider.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected at re-validation because the slot was taken.",
		},
	)

	statusPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "status_publishes_total",
			Help:      "Live status broadcasts by status.",
		},
		[]string{"status"},
	)

	persistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "velorent",
			Name:      "persistence_failures_total",
			Help:      "Storage writes that failed after payment was captured.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			paymentsDeclined,
			slotConflicts,
			statusPublishes,
			persistenceFailures,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated()     { bookingsCreated.Inc() }
func IncPaymentDeclined()    { paymentsDeclined.Inc() }
func IncSlotConflict()       { slotConflicts.Inc() }
func IncPersistenceFailure() { persistenceFailures.Inc() }

func IncStatusPublish(status string) {
	statusPublishes.WithLabelValues(status).Inc()
}
