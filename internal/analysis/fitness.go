package analysis

import (
	"sort"
	"time"
)

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date  time.Time
	TRIMP float64
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time
	CTL  float64 // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64 // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64 // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB from daily loads.
// The series runs from the first load through the later of the last load
// and through; days without a session count as zero load.
func CalculateFitnessTrend(dailyLoads []DailyLoad, through time.Time) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	loads := make([]DailyLoad, len(dailyLoads))
	copy(loads, dailyLoads)
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})

	// EMA decay constants
	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	startDate := dayOf(loads[0].Date)
	endDate := dayOf(loads[len(loads)-1].Date)
	if !through.IsZero() && dayOf(through).After(endDate) {
		endDate = dayOf(through)
	}

	loadMap := make(map[time.Time]float64)
	for _, dl := range loads {
		loadMap[dayOf(dl.Date)] += dl.TRIMP // Sum multiple activities on same day
	}

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		trimp := loadMap[d]

		ctl = ctl + ctlDecay*(trimp-ctl)
		atl = atl + atlDecay*(trimp-atl)

		metrics = append(metrics, FitnessMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// CurrentFitness returns the CTL/ATL/TSB values as of through
func CurrentFitness(dailyLoads []DailyLoad, through time.Time) FitnessMetrics {
	metrics := CalculateFitnessTrend(dailyLoads, through)
	if len(metrics) == 0 {
		return FitnessMetrics{}
	}
	return metrics[len(metrics)-1]
}

// TSB bands for FormDescription
const (
	detrainingTSB = 25
	raceReadyTSB  = 10
	fatiguedTSB   = -10
	overloadTSB   = -25
)

// FormDescription labels training stress balance for the daily status.
func FormDescription(tsb float64) string {
	switch {
	case tsb > detrainingTSB:
		return "Detraining, fresh but losing fitness"
	case tsb > raceReadyTSB:
		return "Race ready"
	case tsb > 0:
		return "Neutral, good day for a quality session"
	case tsb > fatiguedTSB:
		return "Productive fatigue"
	case tsb > overloadTSB:
		return "Heavy block, keep easy days easy"
	default:
		return "Overloaded, schedule recovery"
	}
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
