package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runcoach/internal/analysis"
	"runcoach/internal/strava"
)

func fadingStreams(n int) *strava.Streams {
	velocity := make([]float64, n)
	hr := make([]int, n)
	for i := range n {
		velocity[i] = 3.0
		if i >= n/2 {
			velocity[i] = 2.7
		}
		hr[i] = 150
	}
	return &strava.Streams{
		VelocitySmooth: &strava.StreamData[float64]{Data: velocity},
		Heartrate:      &strava.StreamData[int]{Data: hr},
	}
}

func TestBuildRunRecord_SummaryOnly(t *testing.T) {
	a := strava.Activity{
		ID:               42,
		Name:             "Tempo",
		Type:             "Run",
		StartDate:        time.Date(2024, 6, 14, 7, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		Distance:         10000,
		MovingTime:       2700,
		AverageHeartrate: 165,
		MaxHeartrate:     178.6,
	}

	rec := BuildRunRecord("athlete-1", a, nil, analysis.DefaultProfile(), false)

	assert.Equal(t, "42", rec.ActivityID)
	assert.Equal(t, "athlete-1", rec.UserID)
	assert.Equal(t, time.UTC, rec.StartDate.Location())
	assert.Equal(t, 10.0, rec.DistanceKm)
	assert.Equal(t, 45.0, rec.MovingTimeMin)
	assert.Equal(t, 165, rec.AvgHR)
	assert.Equal(t, 179, rec.MaxHR)
	assert.Equal(t, 123.71, rec.TRIMPScore)
	assert.Equal(t, string(analysis.IntensityHigh), rec.Intensity)
	assert.Nil(t, rec.EfficiencyFactor)
	assert.Nil(t, rec.DecouplingPct)
}

func TestBuildRunRecord_WithStreams(t *testing.T) {
	a := strava.Activity{ID: 7, Type: "Run", StartDate: time.Now(), Distance: 5700, MovingTime: 2000}

	rec := BuildRunRecord("athlete-1", a, fadingStreams(20), analysis.DefaultProfile(), false)

	// no summary HR, so the stream average is used
	assert.Equal(t, 150, rec.AvgHR)
	assert.Greater(t, rec.TRIMPScore, 0.0)
	require.NotNil(t, rec.EfficiencyFactor)
	require.NotNil(t, rec.DecouplingPct)
	assert.Equal(t, 1.14, *rec.EfficiencyFactor)
	assert.Equal(t, 10.0, *rec.DecouplingPct)
}

func TestBuildRunRecord_NoHeartRate(t *testing.T) {
	a := strava.Activity{ID: 8, Type: "Run", StartDate: time.Now(), Distance: 5000, MovingTime: 1500}

	rec := BuildRunRecord("athlete-1", a, nil, analysis.DefaultProfile(), false)

	assert.Equal(t, 0.0, rec.TRIMPScore)
	assert.Equal(t, string(analysis.IntensityNoData), rec.Intensity)
}
