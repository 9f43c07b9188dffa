package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoAuth is returned until `runcoach auth` has stored Strava tokens.
var ErrNoAuth = errors.New("no Strava authorization stored")

// authRowID is the singleton auth row; one store coaches one athlete.
const authRowID = 1

// GetAuth returns the stored Strava tokens.
func (s *Store) GetAuth(ctx context.Context) (*Auth, error) {
	var a Auth
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT athlete_id, access_token, refresh_token, expires_at
		FROM auth
		WHERE id = ?
	`, authRowID).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, fmt.Errorf("reading Strava authorization: %w", err)
	}

	a.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &a, nil
}

// SaveAuth replaces the stored authorization after the OAuth flow.
func (s *Store) SaveAuth(ctx context.Context, a *Auth) error {
	if a == nil || a.AccessToken == "" || a.RefreshToken == "" {
		return errors.New("saving Strava authorization: missing tokens")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, authRowID, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("saving Strava authorization for athlete %d: %w", a.AthleteID, err)
	}
	return nil
}

// UpdateTokens stores a refreshed token pair. It satisfies auth.TokenSaver,
// so the harvest keeps working across restarts.
func (s *Store) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, accessToken, refreshToken, expiresAt.Unix(), authRowID)
	if err != nil {
		return fmt.Errorf("storing refreshed Strava tokens: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("storing refreshed Strava tokens: %w", err)
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}
