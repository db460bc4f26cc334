package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BidMetrics records bid acceptance outcomes.
type BidMetrics struct {
	duration *prometheus.HistogramVec
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewBidMetrics registers the bid metrics on the provided registerer.
func NewBidMetrics(reg prometheus.Registerer) *BidMetrics {
	if reg == nil {
		return &BidMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bid_place_duration_seconds",
		Help:    "Duration of bid placement transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bids_accepted_total",
		Help: "Accepted bids.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Rejected bids by reason.",
	}, []string{"reason"})
	reg.MustRegister(duration, accepted, rejected)
	return &BidMetrics{
		duration: duration,
		accepted: accepted,
		rejected: rejected,
	}
}

// ObserveDuration records the duration of a bid placement attempt.
func (b *BidMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncAccepted increments the accepted-bid counter.
func (b *BidMetrics) IncAccepted() {
	if b == nil || b.accepted == nil {
		return
	}
	b.accepted.Inc()
}

// IncRejected increments the rejected-bid counter for the given reason.
func (b *BidMetrics) IncRejected(reason string) {
	if b == nil || b.rejected == nil {
		return
	}
	b.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
