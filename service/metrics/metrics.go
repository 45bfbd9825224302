package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued",
		},
		[]string{"subject_type", "source"},
	)

	ticketScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Total ticket scans by result code",
		},
		[]string{"code"},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_transitions_total",
			Help: "Total ticket status transitions by target status",
		},
		[]string{"to"},
	)

	paymentsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "Total payment verifications",
		},
		[]string{"gateway", "result"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Duration of the expired ticket sweep",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func TicketsIssued(subjectType, source string, n int) {
	ticketsIssued.WithLabelValues(subjectType, source).Add(float64(n))
}

func TicketScanned(code string) {
	ticketScans.WithLabelValues(code).Inc()
}

func TicketTransition(to string, n int) {
	ticketTransitions.WithLabelValues(to).Add(float64(n))
}

// result is "verified", "rejected" or "duplicate"
func PaymentVerified(gateway, result string) {
	paymentsVerified.WithLabelValues(gateway, result).Inc()
}

func ObserveSweep(start time.Time) {
	sweepDuration.Observe(time.Since(start).Seconds())
}
