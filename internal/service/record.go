package service

import (
	"math"
	"strconv"

	"runcoach/internal/analysis"
	"runcoach/internal/store"
	"runcoach/internal/strava"
)

// BuildRunRecord converts a Strava activity, and its streams when fetched,
// into a run record with TRIMP, intensity, EF and decoupling computed.
func BuildRunRecord(userID string, a strava.Activity, streams *strava.Streams, profile analysis.HRProfile, gradeAdjust bool) store.RunRecord {
	durationMin := float64(a.MovingTime) / SecondsPerMinute
	samples := streams.Samples(gradeAdjust)

	avgHR := a.AverageHeartrate
	if avgHR == 0 && len(samples) > 0 {
		avgHR = analysis.AverageHR(samples)
	}

	trimp := analysis.ComputeTRIMP(durationMin, avgHR, profile)

	rec := store.RunRecord{
		ActivityID:    strconv.FormatInt(a.ID, 10),
		UserID:        userID,
		Name:          a.Name,
		StartDate:     a.StartDate.UTC(),
		DistanceKm:    round2(a.Distance / MetersPerKm),
		MovingTimeMin: round2(durationMin),
		AvgHR:         int(math.Round(avgHR)),
		MaxHR:         int(math.Round(a.MaxHeartrate)),
		SufferScore:   a.SufferScore,
		TRIMPScore:    trimp.TRIMP,
		Intensity:     string(trimp.Intensity),
	}

	if len(samples) >= 2 {
		ef := analysis.SessionEF(samples)
		decoupling := analysis.AnalyzeDecoupling(samples)
		rec.EfficiencyFactor = &ef
		rec.DecouplingPct = &decoupling
	}

	return rec
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
