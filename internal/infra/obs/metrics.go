package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxstand",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by initial status.",
		},
		[]string{"status"},
	)

	bookingCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxstand",
			Name:      "booking_cancelled_total",
			Help:      "Count of cancellation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	refundIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxstand",
			Name:      "refund_issued_total",
			Help:      "Count of refunds issued by tier percentage.",
		},
		[]string{"percentage"},
	)

	statusSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxstand",
			Name:      "status_transitions_total",
			Help:      "Count of persisted booking status transitions.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, refundIssued, statusSynced)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

// IncBookingCancelled records a cancellation outcome: cancelled,
// already_cancelled, refused or reconciled (out-of-band refund detected).
func IncBookingCancelled(outcome string) {
	bookingCancelled.WithLabelValues(outcome).Inc()
}

func IncRefundIssued(percentage string) {
	refundIssued.WithLabelValues(percentage).Inc()
}

func AddStatusTransitions(n float64) {
	statusSynced.Add(n)
}
