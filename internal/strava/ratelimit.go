package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
const (
	defaultShortLimit  = 100
	defaultDailyLimit  = 1000
	shortWindow        = 15 * time.Minute
	defaultMinInterval = 150 * time.Millisecond
)

// RateLimiter manages Strava API rate limits. It is safe for concurrent use.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window (UTC midnight)
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	r := &RateLimiter{
		now:         time.Now,
		shortLimit:  defaultShortLimit,
		dailyLimit:  defaultDailyLimit,
		minInterval: defaultMinInterval,
	}
	r.resetWindows(r.now())
	return r
}

func (r *RateLimiter) resetWindows(now time.Time) {
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(shortWindow)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
}

// delay returns how long the next request must wait. Callers hold mu.
func (r *RateLimiter) delay(now time.Time) time.Duration {
	switch {
	case r.dailyUsage >= r.dailyLimit:
		return r.dailyResetsAt.Sub(now)
	case r.shortUsage >= r.shortLimit:
		return r.shortResetsAt.Sub(now)
	}
	if elapsed := now.Sub(r.lastRequest); elapsed < r.minInterval {
		return r.minInterval - elapsed
	}
	return 0
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		now := r.now()
		r.resetWindows(now)

		d := r.delay(now)
		if d <= 0 {
			break
		}
		if d > time.Second {
			log.Warn().Dur("wait", d).Int("short_usage", r.shortUsage).Int("daily_usage", r.dailyUsage).Msg("strava rate limit reached")
		}

		r.mu.Unlock()
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			r.mu.Lock()
			return ctx.Err()
		}
		r.mu.Lock()
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = r.now()
	return nil
}

// UpdateFromHeaders updates rate limit state from Strava response headers
// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
