package store

import (
	"database/sql"
	"fmt"
)

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Processed runs, one row per source activity
		`CREATE TABLE IF NOT EXISTS run_activities (
			activity_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL,
			distance_km REAL NOT NULL DEFAULT 0,
			moving_time_min REAL NOT NULL DEFAULT 0,
			avg_hr INTEGER NOT NULL DEFAULT 0,
			max_hr INTEGER NOT NULL DEFAULT 0,
			suffer_score INTEGER,
			trimp_score REAL NOT NULL DEFAULT 0,
			intensity TEXT NOT NULL DEFAULT '',
			efficiency_factor REAL,
			decoupling_pct REAL,
			outcome_score INTEGER CHECK (outcome_score BETWEEN 0 AND 100),
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_run_activities_user_start ON run_activities(user_id, start_date)`,

		// Sync State (key-value store for harvest tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i, err)
		}
	}

	return nil
}
