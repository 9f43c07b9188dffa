package store

import (
	"context"
	"fmt"
	"time"
)

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// RunRecord is one completed training session.
type RunRecord struct {
	ActivityID       string    `db:"activity_id"`
	UserID           string    `db:"user_id"`
	Name             string    `db:"name"`
	StartDate        time.Time `db:"start_date"`
	DistanceKm       float64   `db:"distance_km"`
	MovingTimeMin    float64   `db:"moving_time_min"`
	AvgHR            int       `db:"avg_hr"` // 0 if unknown
	MaxHR            int       `db:"max_hr"` // 0 if unknown
	SufferScore      *int      `db:"suffer_score"`
	TRIMPScore       float64   `db:"trimp_score"`
	Intensity        string    `db:"intensity"`
	EfficiencyFactor *float64  `db:"efficiency_factor"` // only with a stream
	DecouplingPct    *float64  `db:"decoupling_pct"`    // only with a stream
	OutcomeScore     *int      `db:"outcome_score"`     // 0-100, set after analysis
}

// Validate checks the fields the store relies on.
func (r RunRecord) Validate() error {
	switch {
	case r.ActivityID == "":
		return fmt.Errorf("%w: missing activity id", ErrInvalidRun)
	case r.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidRun)
	case r.StartDate.IsZero():
		return fmt.Errorf("%w: missing start date", ErrInvalidRun)
	case r.DistanceKm < 0 || r.MovingTimeMin < 0 || r.TRIMPScore < 0:
		return fmt.Errorf("%w: negative distance, time or load", ErrInvalidRun)
	}
	return nil
}

// DailyTRIMP is the summed load of one calendar day (UTC).
type DailyTRIMP struct {
	Date  time.Time
	TRIMP float64
}

// RunRepository is the run ledger contract shared by the SQLite and
// PostgreSQL backends.
type RunRepository interface {
	UpsertRun(ctx context.Context, rec RunRecord) error
	UpdateOutcomeScore(ctx context.Context, activityID string, score int) error
	GetRun(ctx context.Context, activityID string) (*RunRecord, error)
	SumTRIMPInWindow(ctx context.Context, userID string, days int) (float64, error)
	RecentRuns(ctx context.Context, userID string, limit int) ([]RunRecord, error)
	DailyTRIMP(ctx context.Context, userID string, since time.Time) ([]DailyTRIMP, error)
}

// ClampOutcome limits an outcome score to [0,100].
func ClampOutcome(score int) int {
	return max(0, min(100, score))
}
