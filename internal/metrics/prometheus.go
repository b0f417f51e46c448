// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the complaint platform.
var (
	// Counters.
	ComplaintsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Total number of complaints submitted",
		},
		[]string{"category"},
	)

	InvestmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investments_total",
			Help: "Total number of point investment attempts",
		},
		[]string{"result"}, // accepted, rejected
	)

	PointsInvestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "points_invested_total",
			Help: "Total priority points transferred to complaints",
		},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Total number of complaint status transition attempts",
		},
		[]string{"action", "result"}, // result: applied, rejected
	)

	RepliesPostedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replies_posted_total",
			Help: "Total number of discussion replies posted",
		},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Complaint cache lookups by outcome",
		},
		[]string{"result"}, // hit, miss
	)

	// Gauges.
	ComplaintsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "complaints_by_status",
			Help: "Current number of complaints per lifecycle status",
		},
		[]string{"status"},
	)

	StudentBalanceRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "student_balance_remaining",
			Help: "Sum of all remaining student priority-point balances",
		},
	)

	// Histograms.
	InvestmentAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "investment_amount",
			Help:    "Distribution of single investment amounts",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8), // 10 to 1280 points
		},
	)
)

// Investment attempt results.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Status transition results.
const (
	ResultApplied = "applied"
)

// RecordSubmission records a submitted complaint.
func RecordSubmission(category string) {
	ComplaintsSubmittedTotal.WithLabelValues(category).Inc()
}

// RecordInvestment records an investment attempt and, when accepted,
// the transferred amount.
func RecordInvestment(result string, amount int) {
	InvestmentsTotal.WithLabelValues(result).Inc()
	if result == ResultAccepted {
		PointsInvestedTotal.Add(float64(amount))
		InvestmentAmount.Observe(float64(amount))
	}
}

// RecordTransition records a status transition attempt.
func RecordTransition(action, result string) {
	StatusTransitionsTotal.WithLabelValues(action, result).Inc()
}

// RecordReply records a posted discussion reply.
func RecordReply() {
	RepliesPostedTotal.Inc()
}

// RecordCacheLookup records a complaint cache lookup outcome.
func RecordCacheLookup(result string) {
	CacheRequestsTotal.WithLabelValues(result).Inc()
}
