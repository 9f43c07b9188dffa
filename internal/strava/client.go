package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// APIError is a non-200 response from the Strava API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the oauth2 HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities fetches one page of the athlete's activities, newest first.
// A zero after returns activities from any time.
func (c *Client) ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

// GetActivityStreams fetches the per-second streams used for efficiency
// and decoupling.
func (c *Client) GetActivityStreams(ctx context.Context, activityID int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", "time,velocity_smooth,heartrate,grade_smooth")
	params.Set("key_by_type", "true")

	var streams Streams
	path := fmt.Sprintf("/activities/%d/streams", activityID)
	if err := c.getJSON(ctx, path, params, &streams); err != nil {
		return nil, fmt.Errorf("fetching streams for %d: %w", activityID, err)
	}
	return &streams, nil
}

// GetAthleteStats fetches the athlete's running totals.
func (c *Client) GetAthleteStats(ctx context.Context, athleteID int64) (*AthleteStats, error) {
	var stats AthleteStats
	path := fmt.Sprintf("/athletes/%d/stats", athleteID)
	if err := c.getJSON(ctx, path, nil, &stats); err != nil {
		return nil, fmt.Errorf("fetching athlete stats: %w", err)
	}
	return &stats, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)
	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("strava request")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
