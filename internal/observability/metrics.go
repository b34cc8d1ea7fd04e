package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionUpsertGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "traininglog",
		Subsystem: "persistence",
		Name:      "last_session_upserted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training session written to Postgres.",
	})
	loginFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "traininglog",
		Subsystem: "auth",
		Name:      "login_failures_total",
		Help:      "Number of rejected login attempts.",
	})
	syncSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "traininglog",
		Subsystem: "sync",
		Name:      "rows_skipped_total",
		Help:      "Number of sync payload rows skipped due to an invalid uuid.",
	})
)

func init() {
	prometheus.MustRegister(sessionUpsertGauge, loginFailureCounter, syncSkippedCounter)
}

// RecordSessionUpserted updates the persistence watermark gauge.
func RecordSessionUpserted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	sessionUpsertGauge.Set(float64(ts.Unix()))
}

// RecordLoginFailure counts a rejected login attempt.
func RecordLoginFailure() {
	loginFailureCounter.Inc()
}

// RecordSyncRowSkipped counts a sync row dropped during validation.
func RecordSyncRowSkipped() {
	syncSkippedCounter.Inc()
}
