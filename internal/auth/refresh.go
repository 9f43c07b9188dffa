package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// refreshBuffer refreshes tokens slightly before they expire
const refreshBuffer = 60 * time.Second

// TokenSaver persists refreshed tokens
type TokenSaver interface {
	UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource refreshes expiring tokens and saves each new token, so a
// restarted process picks up the latest refresh token.
type TokenSource struct {
	mu     sync.Mutex
	config *oauth2.Config
	token  *oauth2.Token
	saver  TokenSaver
}

// NewTokenSource creates a TokenSource starting from token
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, saver TokenSaver) *TokenSource {
	return &TokenSource{
		config: cfg,
		token:  token,
		saver:  saver,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	ctx := context.Background()
	// Force a refresh even though oauth2 considers the token valid
	stale := *ts.token
	stale.Expiry = time.Now().Add(-time.Second)

	newToken, err := ts.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		return nil, err
	}

	if ts.saver != nil {
		if err := ts.saver.UpdateTokens(ctx, newToken.AccessToken, newToken.RefreshToken, newToken.Expiry); err != nil {
			return nil, err
		}
	}
	log.Debug().Time("expires", newToken.Expiry).Msg("strava token refreshed")

	ts.token = newToken
	return newToken, nil
}
