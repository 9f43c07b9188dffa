package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "runcoach"

var (
	runsPersistedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "runs_persisted_total",
		Help:      "Number of run records upserted, labeled by storage backend.",
	}, []string{"backend"})

	runPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "last_run_persisted_timestamp_seconds",
		Help:      "Start time of the most recent run upserted.",
	})

	outcomeScoreCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "outcome_scores_recorded_total",
		Help:      "Number of outcome scores attached to existing runs.",
	})

	trainingLoadGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "load",
		Name:      "trimp_sum",
		Help:      "Summed TRIMP over the trailing window, labeled by user and window.",
	}, []string{"user_id", "window"})

	acwrGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "load",
		Name:      "acwr_ratio",
		Help:      "Latest acute:chronic workload ratio per user.",
	}, []string{"user_id"})

	harvestActivitiesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "harvest",
		Name:      "activities_total",
		Help:      "Activities seen by the harvester, labeled by result (saved, skipped, failed).",
	}, []string{"result"})

	harvestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "harvest",
		Name:      "duration_seconds",
		Help:      "Wall time of a harvest pass.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	briefingsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "briefings_total",
		Help:      "Briefings delivered, labeled by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		runsPersistedCounter,
		runPersistGauge,
		outcomeScoreCounter,
		trainingLoadGauge,
		acwrGauge,
		harvestActivitiesCounter,
		harvestDuration,
		briefingsCounter,
	)
}

// RecordRunPersisted counts an upsert and moves the persistence watermark.
func RecordRunPersisted(backend string, start time.Time) {
	runsPersistedCounter.WithLabelValues(backend).Inc()
	if start.IsZero() {
		return
	}
	runPersistGauge.Set(float64(start.Unix()))
}

// RecordOutcomeScore counts an outcome score update.
func RecordOutcomeScore() {
	outcomeScoreCounter.Inc()
}

// RecordTrainingLoad publishes a user's acute and chronic loads and ratio.
func RecordTrainingLoad(userID string, acute, chronic, ratio float64) {
	trainingLoadGauge.WithLabelValues(userID, "7d").Set(acute)
	trainingLoadGauge.WithLabelValues(userID, "28d").Set(chronic)
	acwrGauge.WithLabelValues(userID).Set(ratio)
}

// RecordHarvest records the outcome counts and duration of a harvest pass.
func RecordHarvest(saved, skipped, failed int, elapsed time.Duration) {
	harvestActivitiesCounter.WithLabelValues("saved").Add(float64(saved))
	harvestActivitiesCounter.WithLabelValues("skipped").Add(float64(skipped))
	harvestActivitiesCounter.WithLabelValues("failed").Add(float64(failed))
	harvestDuration.Observe(elapsed.Seconds())
}

// RecordBriefing counts a briefing delivery attempt.
func RecordBriefing(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	briefingsCounter.WithLabelValues(result).Inc()
}
