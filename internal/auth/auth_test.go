package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"runcoach/internal/store"
)

type recordingSaver struct {
	mu      sync.Mutex
	access  string
	refresh string
	calls   int
}

func (s *recordingSaver) UpdateTokens(_ context.Context, access, refresh string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	s.calls++
	return nil
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSource_ValidTokenNotRefreshed(t *testing.T) {
	saver := &recordingSaver{}
	token := &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(NewOAuthConfig("id", "secret"), token, saver)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "current", got.AccessToken)
	assert.Zero(t, saver.calls)
}

func TestTokenSource_RefreshesAndSaves(t *testing.T) {
	srv := tokenServer(t)
	cfg := NewOAuthConfig("id", "secret")
	cfg.Endpoint.TokenURL = srv.URL

	saver := &recordingSaver{}
	// Inside the refresh buffer but not yet expired
	token := &oauth2.Token{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(30 * time.Second),
	}
	ts := NewTokenSource(cfg, token, saver)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, 1, saver.calls)
	assert.Equal(t, "new-refresh", saver.refresh)

	// The refreshed token is reused
	again, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", again.AccessToken)
	assert.Equal(t, 1, saver.calls)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		wantCode string
		wantErr  string
	}{
		{"success", "?state=abc&code=xyz", http.StatusOK, "xyz", ""},
		{"state mismatch", "?state=evil&code=xyz", http.StatusBadRequest, "", "state mismatch"},
		{"denied", "?state=abc&error=access_denied", http.StatusBadRequest, "", "access_denied"},
		{"missing code", "?state=abc", http.StatusBadRequest, "", "no code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			h := callbackHandler("abc", codes, errs)

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, <-codes)
				return
			}
			err := <-errs
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestExtractAthleteID(t *testing.T) {
	token := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{
		"athlete": map[string]any{"id": float64(123456)},
	})
	assert.Equal(t, int64(123456), ExtractAthleteID(token))

	assert.Zero(t, ExtractAthleteID(&oauth2.Token{AccessToken: "a"}))
}

func TestTokenConversions(t *testing.T) {
	expires := time.Unix(1718445600, 0)
	a := &store.Auth{AthleteID: 7, AccessToken: "a", RefreshToken: "r", ExpiresAt: expires}

	token := TokenFromAuth(a)
	assert.Equal(t, "a", token.AccessToken)
	assert.Equal(t, "r", token.RefreshToken)
	assert.True(t, expires.Equal(token.Expiry))

	assert.Equal(t, a, AuthFromToken(token, 7))
}

func TestGenerateState(t *testing.T) {
	a, err := generateState()
	require.NoError(t, err)
	b, err := generateState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
