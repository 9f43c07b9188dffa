package store

import "time"

// NewTestStore opens a migrated in-memory Store whose clock is fixed at now.
// This is only intended for use in tests.
func NewTestStore(now time.Time) (*Store, error) {
	return Open(":memory:", WithClock(func() time.Time { return now }))
}
