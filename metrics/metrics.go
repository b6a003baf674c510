// Package metrics holds the Prometheus instruments recorded by the HTTP
// handlers. All operations are safe for concurrent use.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mathagent"

type Metrics struct {
	// QueriesTotal counts answered queries.
	// Labels: provenance (guardrail, knowledge, web, no-answer), redacted (true, false)
	QueriesTotal *prometheus.CounterVec

	// QueryDurationSeconds measures the time taken to answer a query.
	// Labels: provenance
	QueryDurationSeconds *prometheus.HistogramVec

	// OutputNeedsReviewTotal counts answers the output guardrail flagged as a
	// likely refusal.
	// Labels: provenance
	OutputNeedsReviewTotal *prometheus.CounterVec

	// FeedbackTotal counts feedback entries by rating.
	FeedbackTotal *prometheus.CounterVec

	// DocumentsTotal counts documents added to the knowledge base.
	DocumentsTotal prometheus.Counter
}

// New registers the instruments with reg. Use prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of queries answered by provenance",
			},
			[]string{"provenance", "redacted"},
		),
		QueryDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Time taken to answer a query in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provenance"},
		),
		OutputNeedsReviewTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_needs_review_total",
				Help:      "Total answers flagged for review by the output guardrail",
			},
			[]string{"provenance"},
		),
		FeedbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_total",
				Help:      "Total feedback entries by rating",
			},
			[]string{"rating"},
		),
		DocumentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Total documents added to the knowledge base",
			},
		),
	}
}

func (m *Metrics) RecordQuery(provenance string, redacted bool, d time.Duration) {
	m.QueriesTotal.WithLabelValues(provenance, strconv.FormatBool(redacted)).Inc()
	m.QueryDurationSeconds.WithLabelValues(provenance).Observe(d.Seconds())
}

func (m *Metrics) RecordNeedsReview(provenance string) {
	m.OutputNeedsReviewTotal.WithLabelValues(provenance).Inc()
}

func (m *Metrics) RecordFeedback(rating string) {
	m.FeedbackTotal.WithLabelValues(rating).Inc()
}

func (m *Metrics) RecordDocument() {
	m.DocumentsTotal.Inc()
}
