package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runcoach/internal/analysis"
	"runcoach/internal/load"
	"runcoach/internal/store"
	"runcoach/internal/strava"
)

type fakeLoads struct {
	summary load.Summary
	fitness analysis.FitnessMetrics
}

func (f fakeLoads) Summary(context.Context, string) load.Summary { return f.summary }

func (f fakeLoads) CurrentFitness(context.Context, string) analysis.FitnessMetrics {
	return f.fitness
}

type erroringRuns struct{}

func (erroringRuns) RecentRuns(context.Context, string, int) ([]store.RunRecord, error) {
	return nil, errors.New("locked")
}

func newBriefing(runs RunLister, loads LoadReader, raceDate string, opts ...BriefingOption) *BriefingService {
	athlete := Athlete{UserID: "athlete-1", RaceDate: raceDate, CurrentGoal: "Spring marathon"}
	opts = append([]BriefingOption{WithBriefingClock(func() time.Time { return testNow })}, opts...)
	return NewBriefingService(runs, loads, athlete, opts...)
}

func TestBuildBriefing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for i, name := range []string{"Easy_run", "Intervals", "Long run"} {
		var streams *strava.Streams
		if i == 2 {
			streams = fadingStreams(20)
		}
		rec := BuildRunRecord("athlete-1", activity(int64(i+1), "Run", i+1), streams, analysis.DefaultProfile(), false)
		rec.Name = name
		require.NoError(t, s.UpsertRun(ctx, rec))
	}

	agg := load.NewAggregator(s, load.WithClock(func() time.Time { return testNow }))
	br := newBriefing(s, agg, testNow.AddDate(0, 0, 28).Format(load.RaceDateLayout)).BuildBriefing(ctx)

	assert.Equal(t, "athlete-1", br.UserID)
	assert.Len(t, br.RecentRuns, 3)
	assert.Equal(t, "Easy_run", br.RecentRuns[0].Name)
	assert.Equal(t, load.PhasePeak, br.Phase.Phase)
	assert.Equal(t, 3, br.Phase.WeeksToRace)
	assert.Greater(t, br.Load.Loads.Acute7d, 0.0)
	assert.Nil(t, br.Stats)

	text := br.Markdown()
	assert.Contains(t, text, "*Morning briefing*")
	assert.Contains(t, text, "Peak Training")
	assert.Contains(t, text, `Easy\_run`)
	assert.Contains(t, text, "1 day ago")
	assert.Contains(t, text, "drift 10.0% (significant drift)")
}

func TestBuildBriefing_Degrades(t *testing.T) {
	loads := fakeLoads{summary: load.Summary{ACWR: analysis.ACWR(0, 0)}}
	stats := func(context.Context) (*strava.AthleteStats, error) {
		return nil, errors.New("rate limited")
	}

	br := newBriefing(erroringRuns{}, loads, "", WithStats(stats)).BuildBriefing(context.Background())

	assert.Empty(t, br.RecentRuns)
	assert.Nil(t, br.Stats)
	assert.Equal(t, load.PhaseOffSeason, br.Phase.Phase)

	text := br.Markdown()
	assert.Contains(t, text, "ACWR: No Chronic Data")
	assert.Contains(t, text, "No runs recorded yet")
}

func TestBriefingMarkdown_Stats(t *testing.T) {
	loads := fakeLoads{
		summary: load.Summary{
			Loads: load.TrainingLoads{Acute7d: 420, Chronic28d: 1400},
			ACWR:  analysis.ACWR(420, 1400),
		},
		fitness: analysis.FitnessMetrics{CTL: 48.2, ATL: 55.9, TSB: -7.7},
	}
	stats := func(context.Context) (*strava.AthleteStats, error) {
		return &strava.AthleteStats{YTDRunTotals: strava.Totals{Count: 1204, Distance: 1523400}}, nil
	}

	br := newBriefing(erroringRuns{}, loads, "", WithStats(stats)).BuildBriefing(context.Background())
	require.NotNil(t, br.Stats)

	text := br.Markdown()
	assert.Contains(t, text, "ACWR: 1.20 (Sweet Spot (Optimal))")
	assert.Contains(t, text, "1,204 runs")
	assert.Contains(t, text, "1,523.4 km")
}
