// Package metrics exposes the Prometheus instruments for the scheduling
// core. All metrics live under the "dental_scheduling" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics counts booking outcomes and availability lookups.
type SchedulingMetrics struct {
	BookingsTotal      *prometheus.CounterVec
	AvailabilityChecks *prometheus.CounterVec
	BookingLatency     prometheus.Histogram
}

// NewSchedulingMetrics creates the instruments and registers them on reg.
func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome.",
		}, []string{"outcome"}),
		AvailabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "scheduling",
			Name:      "availability_checks_total",
			Help:      "Availability lookups by result.",
		}, []string{"result"}),
		BookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of booking operations.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BookingsTotal, m.AvailabilityChecks, m.BookingLatency)
	}
	return m
}
