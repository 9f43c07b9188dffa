package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"runcoach/internal/analysis"
	"runcoach/internal/load"
	"runcoach/internal/store"
	"runcoach/internal/strava"
)

// RunLister returns a user's most recent runs.
type RunLister interface {
	RecentRuns(ctx context.Context, userID string, limit int) ([]store.RunRecord, error)
}

// LoadReader is the part of the load aggregator a briefing reads.
type LoadReader interface {
	Summary(ctx context.Context, userID string) load.Summary
	CurrentFitness(ctx context.Context, userID string) analysis.FitnessMetrics
}

// StatsFunc fetches running totals from the activity source.
type StatsFunc func(ctx context.Context) (*strava.AthleteStats, error)

// Athlete identifies whose briefing is built and what they train for.
type Athlete struct {
	UserID      string
	RaceDate    string
	CurrentGoal string
}

// Briefing is the morning status report.
type Briefing struct {
	UserID      string
	GeneratedAt time.Time
	Load        load.Summary
	Fitness     analysis.FitnessMetrics
	Phase       load.PhaseInfo
	RecentRuns  []store.RunRecord
	Stats       *strava.AthleteStats
}

// BriefingService builds briefings from the ledger and the aggregator.
type BriefingService struct {
	runs    RunLister
	loads   LoadReader
	athlete Athlete
	stats   StatsFunc
	now     func() time.Time
}

// BriefingOption configures a BriefingService.
type BriefingOption func(*BriefingService)

// WithStats adds activity source totals to briefings.
func WithStats(fn StatsFunc) BriefingOption {
	return func(b *BriefingService) {
		b.stats = fn
	}
}

// WithBriefingClock sets the clock used for the phase and timestamps.
func WithBriefingClock(now func() time.Time) BriefingOption {
	return func(b *BriefingService) {
		b.now = now
	}
}

// NewBriefingService creates a BriefingService for athlete.
func NewBriefingService(runs RunLister, loads LoadReader, athlete Athlete, opts ...BriefingOption) *BriefingService {
	b := &BriefingService{runs: runs, loads: loads, athlete: athlete, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildBriefing gathers the current load, form, phase and recent runs.
// Missing runs or stats leave those sections empty.
func (b *BriefingService) BuildBriefing(ctx context.Context) Briefing {
	now := b.now()
	userID := b.athlete.UserID

	br := Briefing{
		UserID:      userID,
		GeneratedAt: now,
		Load:        b.loads.Summary(ctx, userID),
		Fitness:     b.loads.CurrentFitness(ctx, userID),
		Phase:       load.PeriodizationPhase(b.athlete.RaceDate, b.athlete.CurrentGoal, now),
	}

	runs, err := b.runs.RecentRuns(ctx, userID, BriefingRecentRuns)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("reading recent runs")
	}
	br.RecentRuns = runs

	if b.stats != nil {
		stats, err := b.stats(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("athlete stats unavailable")
		} else {
			br.Stats = stats
		}
	}

	return br
}

// Markdown renders the briefing as Telegram-flavoured Markdown.
func (b Briefing) Markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Morning briefing* (%s)\n\n", b.GeneratedAt.Format("Mon 2 Jan"))

	sb.WriteString("*Training load*\n")
	fmt.Fprintf(&sb, "Acute (7d): %s\n", humanize.FormatFloat("#,###.##", b.Load.Loads.Acute7d))
	fmt.Fprintf(&sb, "Chronic (28d): %s\n", humanize.FormatFloat("#,###.##", b.Load.Loads.Chronic28d))
	if b.Load.ACWR.Status == analysis.StatusNoChronicData {
		fmt.Fprintf(&sb, "ACWR: %s\n\n", b.Load.ACWR.Status)
	} else {
		fmt.Fprintf(&sb, "ACWR: %.2f (%s)\n\n", b.Load.ACWR.Ratio, b.Load.ACWR.Status)
	}

	sb.WriteString("*Form*\n")
	fmt.Fprintf(&sb, "Fitness %.1f, fatigue %.1f, form %.1f: %s\n\n",
		b.Fitness.CTL, b.Fitness.ATL, b.Fitness.TSB, analysis.FormDescription(b.Fitness.TSB))

	sb.WriteString("*Phase*\n")
	fmt.Fprintf(&sb, "%s\n", b.Phase.Phase)
	if b.Phase.Message != "" {
		fmt.Fprintf(&sb, "%s\n", escapeMarkdown(b.Phase.Message))
	}
	sb.WriteString("\n")

	sb.WriteString("*Recent runs*\n")
	if len(b.RecentRuns) == 0 {
		sb.WriteString("No runs recorded yet\n")
	}
	for _, r := range b.RecentRuns {
		fmt.Fprintf(&sb, "- %s: %.2f km, TRIMP %.1f (%s)",
			escapeMarkdown(r.Name), r.DistanceKm, r.TRIMPScore, r.Intensity)
		if r.DecouplingPct != nil {
			fmt.Fprintf(&sb, ", drift %.1f%% (%s)", *r.DecouplingPct, analysis.DecouplingBand(*r.DecouplingPct))
		}
		fmt.Fprintf(&sb, ", %s\n", humanize.RelTime(r.StartDate, b.GeneratedAt, "ago", "from now"))
	}

	if b.Stats != nil {
		ytd := b.Stats.YTDRunTotals
		fmt.Fprintf(&sb, "\n*Year to date*\n%s runs, %s km\n",
			humanize.Comma(int64(ytd.Count)),
			humanize.FormatFloat("#,###.#", ytd.Distance/MetersPerKm))
	}

	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
