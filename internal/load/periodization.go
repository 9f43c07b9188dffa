package load

import (
	"fmt"
	"strings"
	"time"
)

// RaceDateLayout is the expected race date format.
const RaceDateLayout = "2006-01-02"

// DefaultGoal labels the off-season when no goal is configured.
const DefaultGoal = "General Fitness"

// Phase is a training-cycle stage relative to the target race.
type Phase string

const (
	PhaseTapering  Phase = "Tapering"
	PhasePeak      Phase = "Peak Training"
	PhaseBaseBuild Phase = "Base/Build"
	PhaseOffSeason Phase = "Off-season/Base Building"
)

// PhaseInfo describes where the athlete is in the cycle.
type PhaseInfo struct {
	Phase       Phase
	HasRace     bool
	WeeksToRace int
	Message     string
}

// PeriodizationPhase classifies the cycle stage from a race date
// ("YYYY-MM-DD", may be empty) and the current goal label.
// An unreadable date falls back to Base/Build.
func PeriodizationPhase(raceDate, currentGoal string, now time.Time) PhaseInfo {
	raceDate = strings.TrimSpace(raceDate)
	if raceDate == "" {
		goal := strings.TrimSpace(currentGoal)
		if goal == "" {
			goal = DefaultGoal
		}
		return PhaseInfo{
			Phase:   PhaseOffSeason,
			Message: fmt.Sprintf("No race scheduled. Current goal: %s", goal),
		}
	}

	race, err := time.ParseInLocation(RaceDateLayout, raceDate, now.Location())
	if err != nil {
		return PhaseInfo{
			Phase:   PhaseBaseBuild,
			Message: fmt.Sprintf("Race date %q is not a valid YYYY-MM-DD date", raceDate),
		}
	}

	days := daysBetween(now, race)
	weeks := 0
	if days > 0 {
		weeks = days / 7
	}

	info := PhaseInfo{HasRace: true, WeeksToRace: weeks}
	switch {
	case weeks <= 2:
		info.Phase = PhaseTapering
	case weeks <= 6:
		info.Phase = PhasePeak
	default:
		info.Phase = PhaseBaseBuild
	}

	if days < 0 {
		info.Message = fmt.Sprintf("Race day %s has passed", raceDate)
	} else {
		info.Message = fmt.Sprintf("%d weeks to race day (%s)", weeks, raceDate)
	}
	return info
}

// daysBetween returns whole days from now until t, rounded toward
// negative infinity.
func daysBetween(now, t time.Time) int {
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
