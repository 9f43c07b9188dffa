// Package load turns stored runs into training-load signals: the acute and
// chronic TRIMP windows, the ACWR status and the CTL/ATL/TSB trend.
package load

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"runcoach/internal/analysis"
	"runcoach/internal/observability"
	"runcoach/internal/store"
)

// Window lengths in days
const (
	AcuteWindowDays   = 7
	ChronicWindowDays = 28
	TrendLookbackDays = 90
)

// RunSource is the part of the activity store the aggregator reads.
type RunSource interface {
	SumTRIMPInWindow(ctx context.Context, userID string, days int) (float64, error)
	DailyTRIMP(ctx context.Context, userID string, since time.Time) ([]store.DailyTRIMP, error)
}

// TrainingLoads is the summed TRIMP of the acute and chronic windows.
type TrainingLoads struct {
	Acute7d    float64
	Chronic28d float64
}

// Summary pairs the loads with their ACWR classification.
type Summary struct {
	Loads TrainingLoads
	ACWR  analysis.ACWRResult
}

// Aggregator computes load signals on demand from a RunSource.
type Aggregator struct {
	runs RunSource
	now  func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used for the trend end date.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator over runs.
func NewAggregator(runs RunSource, opts ...Option) *Aggregator {
	a := &Aggregator{runs: runs, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TrainingLoads sums TRIMP over the trailing 7 and 28 days.
// A storage failure is logged and reported as zero load.
func (a *Aggregator) TrainingLoads(ctx context.Context, userID string) TrainingLoads {
	acute, err := a.runs.SumTRIMPInWindow(ctx, userID, AcuteWindowDays)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("reading acute load")
		return TrainingLoads{}
	}
	chronic, err := a.runs.SumTRIMPInWindow(ctx, userID, ChronicWindowDays)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("reading chronic load")
		return TrainingLoads{}
	}
	return TrainingLoads{
		Acute7d:    round2(acute),
		Chronic28d: round2(chronic),
	}
}

// Summary returns the loads and their ACWR classification.
func (a *Aggregator) Summary(ctx context.Context, userID string) Summary {
	loads := a.TrainingLoads(ctx, userID)
	acwr := analysis.ACWR(loads.Acute7d, loads.Chronic28d)

	observability.RecordTrainingLoad(userID, loads.Acute7d, loads.Chronic28d, acwr.Ratio)
	log.Debug().
		Str("user_id", userID).
		Float64("acute", loads.Acute7d).
		Float64("chronic", loads.Chronic28d).
		Float64("acwr", acwr.Ratio).
		Str("status", string(acwr.Status)).
		Msg("training load")

	return Summary{Loads: loads, ACWR: acwr}
}

// CurrentStatus returns the ACWR classification of the user's current loads.
func (a *Aggregator) CurrentStatus(ctx context.Context, userID string) analysis.ACWRResult {
	return a.Summary(ctx, userID).ACWR
}

// FitnessTrend returns daily CTL/ATL/TSB over the trailing days, ending today.
// A storage failure is logged and yields no trend.
func (a *Aggregator) FitnessTrend(ctx context.Context, userID string, days int) []analysis.FitnessMetrics {
	now := a.now()
	daily, err := a.runs.DailyTRIMP(ctx, userID, now.AddDate(0, 0, -days))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("reading daily load")
		return nil
	}

	loads := make([]analysis.DailyLoad, len(daily))
	for i, d := range daily {
		loads[i] = analysis.DailyLoad{Date: d.Date, TRIMP: d.TRIMP}
	}
	return analysis.CalculateFitnessTrend(loads, now)
}

// CurrentFitness returns today's CTL/ATL/TSB from the default lookback.
func (a *Aggregator) CurrentFitness(ctx context.Context, userID string) analysis.FitnessMetrics {
	trend := a.FitnessTrend(ctx, userID, TrendLookbackDays)
	if len(trend) == 0 {
		return analysis.FitnessMetrics{}
	}
	return trend[len(trend)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
