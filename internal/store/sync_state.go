package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KeyLastHarvest records when the harvester last completed a pass.
const KeyLastHarvest = "last_harvest"

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (s *Store) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync state %s: %w", key, err)
	}
	return value, nil
}

// SetSyncState sets a sync state value
func (s *Store) SetSyncState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing sync state %s: %w", key, err)
	}
	return nil
}

// LastHarvest returns the time of the last completed harvest, or the zero
// time if none has run.
func (s *Store) LastHarvest(ctx context.Context) (time.Time, error) {
	value, err := s.GetSyncState(ctx, KeyLastHarvest)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", KeyLastHarvest, err)
	}
	return t, nil
}

// SetLastHarvest records the completion time of a harvest.
func (s *Store) SetLastHarvest(ctx context.Context, t time.Time) error {
	return s.SetSyncState(ctx, KeyLastHarvest, formatTime(t))
}
