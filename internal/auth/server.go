package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// Result contains the token and athlete info from successful auth
type Result struct {
	Token     *oauth2.Token
	AthleteID int64
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>runcoach connected</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// callbackHandler validates the OAuth redirect and hands the code over.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			errs <- errors.New("state mismatch - possible CSRF attack")
			http.Error(w, "State mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			errs <- fmt.Errorf("auth error: %s", q.Get("error"))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
		case q.Get("code") == "":
			errs <- errors.New("no code in callback")
			http.Error(w, "No authorization code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
			codes <- q.Get("code")
		}
	}
}

// Authenticate runs the OAuth flow with a local callback server. The
// authorization URL is written to out for the user to open.
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*Result, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codes, errs))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("server error: %w", err)
		}
	}()
	defer shutdownServer(server)

	fmt.Fprintf(out, "\nTo connect runcoach to Strava, open this URL in your browser:\n\n  %s\n\nWaiting for authentication...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-time.After(AuthTimeout):
		return nil, fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	athleteID := ExtractAthleteID(token)
	log.Info().Int64("athlete_id", athleteID).Msg("strava authentication complete")

	return &Result{Token: token, AthleteID: athleteID}, nil
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
