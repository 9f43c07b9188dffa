package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"runcoach/internal/observability"
)

const runColumns = `activity_id, user_id, name, start_date, distance_km, moving_time_min,
	avg_hr, max_hr, suffer_score, trimp_score, intensity, efficiency_factor,
	decoupling_pct, outcome_score`

// UpsertRun inserts or replaces a run keyed by activity ID.
// An existing outcome score survives when rec carries none. The merge is
// part of the upsert statement, so a concurrent UpdateOutcomeScore is
// either overwritten by an explicit score or kept.
func (s *Store) UpsertRun(ctx context.Context, rec RunRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	var outcome sql.NullInt64
	if rec.OutcomeScore != nil {
		outcome = sql.NullInt64{Int64: int64(ClampOutcome(*rec.OutcomeScore)), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_activities (`+runColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			start_date = excluded.start_date,
			distance_km = excluded.distance_km,
			moving_time_min = excluded.moving_time_min,
			avg_hr = excluded.avg_hr,
			max_hr = excluded.max_hr,
			suffer_score = excluded.suffer_score,
			trimp_score = excluded.trimp_score,
			intensity = excluded.intensity,
			efficiency_factor = excluded.efficiency_factor,
			decoupling_pct = excluded.decoupling_pct,
			outcome_score = COALESCE(excluded.outcome_score, run_activities.outcome_score),
			updated_at = CURRENT_TIMESTAMP
	`,
		rec.ActivityID, rec.UserID, rec.Name, formatTime(rec.StartDate),
		rec.DistanceKm, rec.MovingTimeMin, rec.AvgHR, rec.MaxHR,
		ptrIntToNullInt64(rec.SufferScore), rec.TRIMPScore, rec.Intensity,
		ptrToNullFloat64(rec.EfficiencyFactor), ptrToNullFloat64(rec.DecouplingPct),
		outcome,
	)
	if err != nil {
		return fmt.Errorf("upserting run %s: %w", rec.ActivityID, err)
	}

	observability.RecordRunPersisted("sqlite", rec.StartDate)
	return nil
}

// UpdateOutcomeScore sets a run's outcome score, clamped to [0,100].
func (s *Store) UpdateOutcomeScore(ctx context.Context, activityID string, score int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE run_activities
		SET outcome_score = ?, updated_at = CURRENT_TIMESTAMP
		WHERE activity_id = ?
	`, ClampOutcome(score), activityID)
	if err != nil {
		return fmt.Errorf("updating outcome score for run %s: %w", activityID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating outcome score for run %s: %w", activityID, err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	observability.RecordOutcomeScore()
	return nil
}

// GetRun retrieves a run by activity ID
func (s *Store) GetRun(ctx context.Context, activityID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM run_activities
		WHERE activity_id = ?
	`, activityID)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", activityID, err)
	}
	return rec, nil
}

// SumTRIMPInWindow sums TRIMP over a user's runs that started within the
// trailing days. A run starting exactly days ago is inside the window.
func (s *Store) SumTRIMPInWindow(ctx context.Context, userID string, days int) (float64, error) {
	if days <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -days)

	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(trimp_score), 0)
		FROM run_activities
		WHERE user_id = ? AND start_date >= ?
	`, userID, formatTime(cutoff)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing trimp over %d days: %w", days, err)
	}
	return total, nil
}

// RecentRuns returns a user's runs, most recent first
func (s *Store) RecentRuns(ctx context.Context, userID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return []RunRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM run_activities
		WHERE user_id = ?
		ORDER BY start_date DESC, activity_id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent runs for %s: %w", userID, err)
	}
	defer rows.Close()

	runs := []RunRecord{}
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

// DailyTRIMP returns per-day TRIMP totals for runs starting on or after since.
func (s *Store) DailyTRIMP(ctx context.Context, userID string, since time.Time) ([]DailyTRIMP, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(start_date, 1, 10) AS day, SUM(trimp_score)
		FROM run_activities
		WHERE user_id = ? AND start_date >= ?
		GROUP BY day
		ORDER BY day
	`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("summing daily TRIMP for %s: %w", userID, err)
	}
	defer rows.Close()

	var days []DailyTRIMP
	for rows.Next() {
		var day string
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("scanning daily TRIMP: %w", err)
		}
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parsing day %q: %w", day, err)
		}
		days = append(days, DailyTRIMP{Date: date, TRIMP: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summing daily TRIMP for %s: %w", userID, err)
	}
	return days, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var rec RunRecord
	var startDate string
	var sufferScore, outcome sql.NullInt64
	var ef, decoupling sql.NullFloat64

	err := row.Scan(
		&rec.ActivityID, &rec.UserID, &rec.Name, &startDate,
		&rec.DistanceKm, &rec.MovingTimeMin, &rec.AvgHR, &rec.MaxHR,
		&sufferScore, &rec.TRIMPScore, &rec.Intensity, &ef, &decoupling, &outcome,
	)
	if err != nil {
		return nil, err
	}

	rec.StartDate, err = time.Parse(time.RFC3339, startDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", startDate, err)
	}
	rec.SufferScore = nullInt64ToIntPtr(sufferScore)
	rec.OutcomeScore = nullInt64ToIntPtr(outcome)
	rec.EfficiencyFactor = nullFloat64ToPtr(ef)
	rec.DecouplingPct = nullFloat64ToPtr(decoupling)

	return &rec, nil
}

var _ RunRepository = (*Store)(nil)
