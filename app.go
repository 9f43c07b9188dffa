package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"runcoach/internal/auth"
	"runcoach/internal/config"
	"runcoach/internal/load"
	"runcoach/internal/service"
	"runcoach/internal/store"
	"runcoach/internal/store/postgres"
	"runcoach/internal/strava"
)

// app holds what every command needs: the validated config, the local
// store (credentials and sync state) and the run ledger, which is either
// the local store or PostgreSQL.
type app struct {
	cfg     *config.Config
	db      *store.Store
	runs    store.RunRepository
	closers []func()
}

func newApp(c *cli.Context) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{cfg: cfg, db: db, runs: db}
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	})

	if cfg.Storage.Driver == config.DriverPostgres {
		repo, err := postgres.Connect(c.Context, cfg.Storage.PostgresURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.runs = repo
		a.closers = append(a.closers, repo.Close)
	}

	log.Debug().Str("driver", cfg.Storage.Driver).Str("user_id", cfg.Athlete.UserID).Msg("storage ready")
	return a, nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNoConfig) {
		if err := config.CreateExample(path); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		return nil, fmt.Errorf("no configuration found; an example was written to %s, edit it and run again", path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Close releases the stores in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// stravaClient builds an API client from the stored tokens.
func (a *app) stravaClient(ctx context.Context) (*strava.Client, *store.Auth, error) {
	if err := a.cfg.ValidateStrava(); err != nil {
		return nil, nil, err
	}

	stored, err := a.db.GetAuth(ctx)
	if errors.Is(err, store.ErrNoAuth) {
		return nil, nil, errors.New("not connected to Strava, run `runcoach auth` first")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading auth: %w", err)
	}

	oauthCfg := auth.NewOAuthConfig(a.cfg.Strava.ClientID, a.cfg.Strava.ClientSecret)
	ts := auth.NewTokenSource(oauthCfg, auth.TokenFromAuth(stored), a.db)
	return strava.NewClient(ts), stored, nil
}

func (a *app) aggregator() *load.Aggregator {
	return load.NewAggregator(a.runs)
}

func (a *app) harvester(client *strava.Client) *service.HarvestService {
	return service.NewHarvestService(client, a.runs, a.cfg.Athlete.UserID, a.cfg.HRProfile(),
		service.WithHarvestState(a.db))
}

// briefings builds the briefing service; with a client the briefing also
// carries year-to-date totals.
func (a *app) briefings(client *strava.Client, athleteID int64) *service.BriefingService {
	athlete := service.Athlete{
		UserID:      a.cfg.Athlete.UserID,
		RaceDate:    a.cfg.Athlete.RaceDate,
		CurrentGoal: a.cfg.Athlete.CurrentGoal,
	}

	var opts []service.BriefingOption
	if client != nil && athleteID != 0 {
		opts = append(opts, service.WithStats(func(ctx context.Context) (*strava.AthleteStats, error) {
			return client.GetAthleteStats(ctx, athleteID)
		}))
	}
	return service.NewBriefingService(a.runs, a.aggregator(), athlete, opts...)
}
