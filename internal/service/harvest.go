// Package service ties the activity source, the metrics library and the run
// ledger together: the harvest writes runs, the briefing reads them back.
package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"runcoach/internal/analysis"
	"runcoach/internal/observability"
	"runcoach/internal/store"
	"runcoach/internal/strava"
)

// ActivitySource lists activities and their streams.
type ActivitySource interface {
	ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
}

// RunWriter persists harvested runs.
type RunWriter interface {
	UpsertRun(ctx context.Context, rec store.RunRecord) error
}

// HarvestState records when the last harvest finished.
type HarvestState interface {
	SetLastHarvest(ctx context.Context, t time.Time) error
}

// HarvestOptions controls a single harvest.
type HarvestOptions struct {
	Limit       int  // activities requested, capped at MaxSyncLimit
	DaysBack    int  // 0 means no lower bound
	Streams     bool // fetch streams for EF and decoupling
	GradeAdjust bool // grade adjust stream velocity before decoupling
}

// HarvestResult summarizes a harvest.
type HarvestResult struct {
	ID      uuid.UUID
	Fetched int
	Saved   int
	Skipped int // non-run activities
	Failed  int
	Saves   []store.RunRecord
	Errors  []error
}

// HarvestService fetches recent runs and writes them to the run ledger.
type HarvestService struct {
	source  ActivitySource
	runs    RunWriter
	state   HarvestState
	userID  string
	profile analysis.HRProfile
	workers int
	now     func() time.Time
}

// HarvestOption configures a HarvestService.
type HarvestOption func(*HarvestService)

// WithHarvestState records the last harvest time after each run.
func WithHarvestState(state HarvestState) HarvestOption {
	return func(s *HarvestService) {
		s.state = state
	}
}

// WithStreamWorkers bounds concurrent stream requests.
func WithStreamWorkers(n int) HarvestOption {
	return func(s *HarvestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithHarvestClock sets the clock used for DaysBack and the harvest timestamp.
func WithHarvestClock(now func() time.Time) HarvestOption {
	return func(s *HarvestService) {
		s.now = now
	}
}

// NewHarvestService creates a harvest for userID using profile for TRIMP.
func NewHarvestService(source ActivitySource, runs RunWriter, userID string, profile analysis.HRProfile, opts ...HarvestOption) *HarvestService {
	s := &HarvestService{
		source:  source,
		runs:    runs,
		userID:  userID,
		profile: profile,
		workers: DefaultStreamWorkers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseSyncArg turns a manual sync argument into options: empty is the
// default preset, "month" backfills 30 days, a number sets the limit.
func ParseSyncArg(arg string) (HarvestOptions, error) {
	arg = strings.TrimSpace(strings.ToLower(arg))
	switch arg {
	case "":
		return HarvestOptions{Limit: DefaultSyncLimit}, nil
	case SyncPresetMonth:
		return HarvestOptions{Limit: MonthSyncLimit, DaysBack: MonthSyncDays}, nil
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return HarvestOptions{}, fmt.Errorf("invalid sync argument %q: want a positive number or %q", arg, SyncPresetMonth)
	}
	return HarvestOptions{Limit: min(n, MaxSyncLimit)}, nil
}

// Harvest lists recent activities, keeps runs, computes their metrics and
// upserts them oldest first. Per-activity failures are collected in the
// result; only a listing failure or cancellation returns an error.
func (s *HarvestService) Harvest(ctx context.Context, opts HarvestOptions) (*HarvestResult, error) {
	start := time.Now()
	result := &HarvestResult{ID: uuid.New()}
	logger := log.With().Str("harvest_id", result.ID.String()).Str("user_id", s.userID).Logger()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	limit = min(limit, MaxSyncLimit)

	var after time.Time
	if opts.DaysBack > 0 {
		after = s.now().AddDate(0, 0, -opts.DaysBack)
	}

	activities, err := s.source.ListActivities(ctx, after, 1, limit)
	if err != nil {
		observability.RecordHarvest(0, 0, 1, time.Since(start))
		return result, fmt.Errorf("listing activities: %w", err)
	}
	result.Fetched = len(activities)

	runs := make([]strava.Activity, 0, len(activities))
	for _, a := range activities {
		if !a.IsRun() {
			result.Skipped++
			continue
		}
		runs = append(runs, a)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartDate.Before(runs[j].StartDate)
	})

	var streams []*strava.Streams
	if opts.Streams && len(runs) > 0 {
		streams, err = s.fetchStreams(ctx, runs)
		if err != nil {
			return result, err
		}
	}

	for i, a := range runs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var st *strava.Streams
		if streams != nil {
			st = streams[i]
		}
		rec := BuildRunRecord(s.userID, a, st, s.profile, opts.GradeAdjust)

		if err := s.runs.UpsertRun(ctx, rec); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("storing activity %s: %w", rec.ActivityID, err))
			logger.Warn().Err(err).Str("activity_id", rec.ActivityID).Msg("run not saved")
			continue
		}
		result.Saved++
		result.Saves = append(result.Saves, rec)
		logger.Info().
			Str("activity_id", rec.ActivityID).
			Str("name", rec.Name).
			Float64("trimp", rec.TRIMPScore).
			Str("intensity", rec.Intensity).
			Msg("run saved")
	}

	if s.state != nil {
		if err := s.state.SetLastHarvest(ctx, s.now()); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("recording harvest time: %w", err))
		}
	}

	elapsed := time.Since(start)
	observability.RecordHarvest(result.Saved, result.Skipped, result.Failed, elapsed)
	logger.Info().
		Int("fetched", result.Fetched).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("elapsed", elapsed).
		Msg("harvest complete")

	return result, nil
}

// fetchStreams downloads streams for runs, indexed like runs. A run whose
// streams cannot be fetched keeps a nil entry and is saved without EF.
func (s *HarvestService) fetchStreams(ctx context.Context, runs []strava.Activity) ([]*strava.Streams, error) {
	out := make([]*strava.Streams, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, a := range runs {
		g.Go(func() error {
			st, err := s.source.GetActivityStreams(gctx, a.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Int64("activity_id", a.ID).Msg("streams unavailable")
				return nil
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching streams: %w", err)
	}
	return out, nil
}
