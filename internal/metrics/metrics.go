// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitdigest_reports_generated_total",
			Help: "Total number of report generations by outcome",
		},
		[]string{"outcome"}, // success, no_activity, error
	)

	reportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gitdigest_report_generation_duration_seconds",
			Help:    "Duration of report generation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
	)

	commitFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitdigest_commit_fetches_total",
			Help: "Total number of per-repository commit fetches by result",
		},
		[]string{"result"}, // ok, failed
	)

	summarizerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitdigest_summarizer_calls_total",
			Help: "Total number of summarizer calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	githubUnauthorized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gitdigest_github_token_rejected_total",
			Help: "Total number of access tokens rejected by GitHub",
		},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitdigest_notifications_total",
			Help: "Total number of report deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gitdigest_active_sessions",
			Help: "Number of unexpired sessions after the last cleanup",
		},
	)
)

// ObserveReport records one report generation.
func ObserveReport(outcome string, elapsed time.Duration) {
	reportsGenerated.WithLabelValues(outcome).Inc()
	reportDuration.Observe(elapsed.Seconds())
}

// RecordCommitFetch records the result of one repository's commit fetch.
func RecordCommitFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	commitFetches.WithLabelValues(result).Inc()
}

// RecordSummarizerCall records one provider attempt.
func RecordSummarizerCall(provider string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	summarizerCalls.WithLabelValues(provider, result).Inc()
}

func RecordTokenRejected() {
	githubUnauthorized.Inc()
}

func SetActiveSessions(n int64) {
	activeSessions.Set(float64(n))
}

// RegisterDBStats exposes connection pool statistics of db.
func RegisterDBStats(db *sql.DB) error {
	return prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gitdigest_db_open_connections",
			Help: "Number of open DB connections",
		},
		func() float64 { return float64(db.Stats().OpenConnections) },
	))
}

// RecordNotification counts one report delivery attempt.
func RecordNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	notificationsSent.WithLabelValues(channel, result).Inc()
}
