// Package postgres stores the run ledger in PostgreSQL for deployments where
// the harvester and the bot run as separate processes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"runcoach/internal/observability"
	"runcoach/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_activities (
	activity_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
	moving_time_min DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_hr INTEGER NOT NULL DEFAULT 0,
	max_hr INTEGER NOT NULL DEFAULT 0,
	suffer_score INTEGER,
	trimp_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	intensity TEXT NOT NULL DEFAULT '',
	efficiency_factor DOUBLE PRECISION,
	decoupling_pct DOUBLE PRECISION,
	outcome_score INTEGER CHECK (outcome_score BETWEEN 0 AND 100),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_run_activities_user_start ON run_activities (user_id, start_date);
`

const runColumns = `activity_id, user_id, name, start_date, distance_km, moving_time_min,
	avg_hr, max_hr, suffer_score, trimp_score, intensity, efficiency_factor,
	decoupling_pct, outcome_score`

// Repository provides Postgres-backed persistence for run records.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock window queries are measured from.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect opens a pool, applies the schema and returns a Repository.
func Connect(ctx context.Context, url string, opts ...Option) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	r := NewRepository(pool, opts...)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the run table if needed.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// UpsertRun inserts or replaces a run keyed by activity ID, keeping any
// stored outcome score when rec has none.
func (r *Repository) UpsertRun(ctx context.Context, rec store.RunRecord) (err error) {
	if err = rec.Validate(); err != nil {
		return err
	}

	var outcome *int
	if rec.OutcomeScore != nil {
		v := store.ClampOutcome(*rec.OutcomeScore)
		outcome = &v
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning upsert of run %s: %w", rec.ActivityID, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	// ON CONFLICT takes the row lock, so the merge and a concurrent
	// UpdateOutcomeScore are serialized.
	_, err = tx.Exec(ctx, `INSERT INTO run_activities (`+runColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (activity_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			distance_km = EXCLUDED.distance_km,
			moving_time_min = EXCLUDED.moving_time_min,
			avg_hr = EXCLUDED.avg_hr,
			max_hr = EXCLUDED.max_hr,
			suffer_score = EXCLUDED.suffer_score,
			trimp_score = EXCLUDED.trimp_score,
			intensity = EXCLUDED.intensity,
			efficiency_factor = EXCLUDED.efficiency_factor,
			decoupling_pct = EXCLUDED.decoupling_pct,
			outcome_score = COALESCE(EXCLUDED.outcome_score, run_activities.outcome_score),
			updated_at = now()`,
		rec.ActivityID, rec.UserID, rec.Name, rec.StartDate.UTC(),
		rec.DistanceKm, rec.MovingTimeMin, rec.AvgHR, rec.MaxHR,
		rec.SufferScore, rec.TRIMPScore, rec.Intensity,
		rec.EfficiencyFactor, rec.DecouplingPct, outcome,
	)
	if err != nil {
		return fmt.Errorf("upserting run %s: %w", rec.ActivityID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run %s: %w", rec.ActivityID, err)
	}
	observability.RecordRunPersisted("postgres", rec.StartDate)
	return nil
}

// UpdateOutcomeScore sets a run's outcome score, clamped to [0,100].
func (r *Repository) UpdateOutcomeScore(ctx context.Context, activityID string, score int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE run_activities
		SET outcome_score = $1, updated_at = now()
		WHERE activity_id = $2`, store.ClampOutcome(score), activityID)
	if err != nil {
		return fmt.Errorf("updating outcome score for run %s: %w", activityID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRunNotFound
	}
	observability.RecordOutcomeScore()
	return nil
}

// GetRun retrieves a run by activity ID.
func (r *Repository) GetRun(ctx context.Context, activityID string) (*store.RunRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+runColumns+`
		FROM run_activities WHERE activity_id = $1`, activityID)

	rec, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", activityID, err)
	}
	return rec, nil
}

// SumTRIMPInWindow sums TRIMP over runs that started within the trailing
// days, inclusive of the run starting exactly days ago.
func (r *Repository) SumTRIMPInWindow(ctx context.Context, userID string, days int) (float64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := r.now().AddDate(0, 0, -days).UTC()

	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(trimp_score), 0)
		FROM run_activities
		WHERE user_id = $1 AND start_date >= $2`, userID, cutoff).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing trimp over %d days: %w", days, err)
	}
	return total, nil
}

// RecentRuns returns a user's runs, most recent first.
func (r *Repository) RecentRuns(ctx context.Context, userID string, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		return []store.RunRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+runColumns+`
		FROM run_activities
		WHERE user_id = $1
		ORDER BY start_date DESC, activity_id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent runs for %s: %w", userID, err)
	}
	defer rows.Close()

	runs := []store.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing recent runs for %s: %w", userID, err)
	}
	return runs, nil
}

// DailyTRIMP returns per-day (UTC) TRIMP totals for runs starting on or after since.
func (r *Repository) DailyTRIMP(ctx context.Context, userID string, since time.Time) ([]store.DailyTRIMP, error) {
	rows, err := r.pool.Query(ctx, `SELECT (start_date AT TIME ZONE 'UTC')::date AS day, SUM(trimp_score)
		FROM run_activities
		WHERE user_id = $1 AND start_date >= $2
		GROUP BY day
		ORDER BY day`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("summing daily TRIMP for %s: %w", userID, err)
	}
	defer rows.Close()

	var days []store.DailyTRIMP
	for rows.Next() {
		var d store.DailyTRIMP
		if err := rows.Scan(&d.Date, &d.TRIMP); err != nil {
			return nil, fmt.Errorf("scanning daily TRIMP: %w", err)
		}
		d.Date = time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), 0, 0, 0, 0, time.UTC)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summing daily TRIMP for %s: %w", userID, err)
	}
	return days, nil
}

func scanRun(row pgx.Row) (*store.RunRecord, error) {
	var rec store.RunRecord
	err := row.Scan(
		&rec.ActivityID, &rec.UserID, &rec.Name, &rec.StartDate,
		&rec.DistanceKm, &rec.MovingTimeMin, &rec.AvgHR, &rec.MaxHR,
		&rec.SufferScore, &rec.TRIMPScore, &rec.Intensity,
		&rec.EfficiencyFactor, &rec.DecouplingPct, &rec.OutcomeScore,
	)
	if err != nil {
		return nil, err
	}
	rec.StartDate = rec.StartDate.UTC()
	return &rec, nil
}

var _ store.RunRepository = (*Repository)(nil)
