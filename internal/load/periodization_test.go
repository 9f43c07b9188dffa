package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodizationPhase(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raceDate string
		goal     string
		phase    Phase
		weeks    int
		hasRace  bool
	}{
		{"no race uses goal", "", "Sub-4 marathon", PhaseOffSeason, 0, false},
		{"blank race date", "   ", "", PhaseOffSeason, 0, false},
		{"invalid date", "next spring", "", PhaseBaseBuild, 0, false},
		{"impossible month", "2024-13-01", "", PhaseBaseBuild, 0, false},
		{"one week out", "2024-06-29", "", PhaseTapering, 1, true},
		{"two weeks out", "2024-07-06", "", PhaseTapering, 2, true},
		{"three weeks out", "2024-07-07", "", PhasePeak, 3, true},
		{"six weeks out", "2024-08-03", "", PhasePeak, 6, true},
		{"seven weeks out", "2024-08-04", "", PhaseBaseBuild, 7, true},
		{"months out", "2024-12-01", "", PhaseBaseBuild, 24, true},
		{"race passed", "2024-06-01", "", PhaseTapering, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := PeriodizationPhase(tt.raceDate, tt.goal, now)
			assert.Equal(t, tt.phase, info.Phase)
			assert.Equal(t, tt.weeks, info.WeeksToRace)
			assert.Equal(t, tt.hasRace, info.HasRace)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestPeriodizationPhase_Messages(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "No race scheduled. Current goal: Trail 50k",
		PeriodizationPhase("", "Trail 50k", now).Message)
	assert.Equal(t, "No race scheduled. Current goal: General Fitness",
		PeriodizationPhase("", "", now).Message)
	assert.Equal(t, "7 weeks to race day (2024-08-04)",
		PeriodizationPhase("2024-08-04", "", now).Message)
	assert.Contains(t, PeriodizationPhase("2024-06-01", "", now).Message, "has passed")
}

func TestDaysBetween(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysBetween(now, now))
	assert.Equal(t, 1, daysBetween(now, now.Add(36*time.Hour)))
	assert.Equal(t, -1, daysBetween(now, now.Add(-12*time.Hour)))
	assert.Equal(t, -2, daysBetween(now, now.Add(-25*time.Hour)))
}
