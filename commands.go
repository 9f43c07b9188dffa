package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"runcoach/internal/analysis"
	"runcoach/internal/auth"
	"runcoach/internal/load"
	"runcoach/internal/notify"
	"runcoach/internal/scheduler"
	"runcoach/internal/service"
	"runcoach/internal/store"
)

const (
	jobHarvest  = "harvest"
	jobBriefing = "briefing"
)

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "connect to Strava in the browser and store the tokens",
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.ValidateStrava(); err != nil {
				return err
			}

			oauthCfg := auth.NewOAuthConfig(a.cfg.Strava.ClientID, a.cfg.Strava.ClientSecret)
			result, err := auth.Authenticate(c.Context, oauthCfg, c.App.Writer)
			if err != nil {
				return fmt.Errorf("authenticating: %w", err)
			}
			if err := a.db.SaveAuth(c.Context, auth.AuthFromToken(result.Token, result.AthleteID)); err != nil {
				return fmt.Errorf("saving auth: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "Connected as athlete %d\n", result.AthleteID)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "harvest recent runs",
		ArgsUsage: "[N|month]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "streams",
				Usage: "fetch streams for efficiency factor and decoupling",
			},
			&cli.BoolFlag{
				Name:  "grade-adjust",
				Usage: "grade adjust stream velocity before decoupling",
			},
		},
		Action: func(c *cli.Context) error {
			opts, err := service.ParseSyncArg(c.Args().First())
			if err != nil {
				return err
			}
			opts.Streams = c.Bool("streams")
			opts.GradeAdjust = c.Bool("grade-adjust")

			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			client, _, err := a.stravaClient(c.Context)
			if err != nil {
				return err
			}

			result, err := a.harvester(client).Harvest(c.Context, opts)
			if err != nil {
				return err
			}

			for _, rec := range result.Saves {
				fmt.Fprintf(c.App.Writer, "%s  %-30s %6.2f km  TRIMP %6.2f  %s\n",
					rec.StartDate.Local().Format("2006-01-02"), truncate(rec.Name, 30),
					rec.DistanceKm, rec.TRIMPScore, rec.Intensity)
			}
			fmt.Fprintf(c.App.Writer, "saved %d, skipped %d non-runs, failed %d\n",
				result.Saved, result.Skipped, result.Failed)

			short, daily := client.RateLimitStatus()
			log.Debug().Int("short_remaining", short).Int("daily_remaining", daily).Msg("rate limit")

			if result.Failed > 0 {
				return errors.Join(result.Errors...)
			}
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show training load, ACWR, form and phase",
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			userID := a.cfg.Athlete.UserID
			agg := a.aggregator()
			summary := agg.Summary(c.Context, userID)
			fitness := agg.CurrentFitness(c.Context, userID)
			phase := load.PeriodizationPhase(a.cfg.Athlete.RaceDate, a.cfg.Athlete.CurrentGoal, time.Now())

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Acute load (7d)\t%.2f\n", summary.Loads.Acute7d)
			fmt.Fprintf(w, "Chronic load (28d)\t%.2f\n", summary.Loads.Chronic28d)
			if summary.ACWR.Status == analysis.StatusNoChronicData {
				fmt.Fprintf(w, "ACWR\t%s\n", summary.ACWR.Status)
			} else {
				fmt.Fprintf(w, "ACWR\t%.2f  %s\n", summary.ACWR.Ratio, summary.ACWR.Status)
			}
			fmt.Fprintf(w, "Fitness / fatigue / form\t%.1f / %.1f / %.1f  %s\n",
				fitness.CTL, fitness.ATL, fitness.TSB, analysis.FormDescription(fitness.TSB))
			fmt.Fprintf(w, "Phase\t%s\n", phase.Phase)
			if phase.Message != "" {
				fmt.Fprintf(w, "\t%s\n", phase.Message)
			}

			last, err := a.db.LastHarvest(c.Context)
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("reading last harvest")
			case last.IsZero():
				fmt.Fprintf(w, "Last harvest\tnever\n")
			default:
				fmt.Fprintf(w, "Last harvest\t%s\n", humanize.Time(last))
			}
			return w.Flush()
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "list recent runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 10,
				Usage: "number of runs to show",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.runs.RecentRuns(c.Context, a.cfg.Athlete.UserID, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.App.Writer, "No runs yet, try `runcoach sync`")
				return nil
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tNAME\tKM\tTRIMP\tINTENSITY\tEF\tDECOUPLING\tSCORE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\t%s\t%s\n",
					r.ActivityID, humanize.Time(r.StartDate), truncate(r.Name, 30),
					r.DistanceKm, r.TRIMPScore, r.Intensity,
					optFloat(r.EfficiencyFactor, "%.2f"), optFloat(r.DecouplingPct, "%.1f%%"),
					optInt(r.OutcomeScore))
			}
			return w.Flush()
		},
	}
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "set the outcome score (0-100) of a run",
		ArgsUsage: "<activity_id> <score>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: runcoach score <activity_id> <score>")
			}
			activityID := c.Args().Get(0)
			score, err := strconv.Atoi(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("score must be a whole number: %w", err)
			}

			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.runs.UpdateOutcomeScore(c.Context, activityID, score); err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("no run with id %s", activityID)
				}
				return err
			}
			fmt.Fprintf(c.App.Writer, "run %s scored %d\n", activityID, store.ClampOutcome(score))
			return nil
		},
	}
}

func briefingCommand() *cli.Command {
	return &cli.Command{
		Name:  "briefing",
		Usage: "print the morning briefing",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "send",
				Usage: "send to the configured Telegram chat instead of printing",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			var athleteID int64
			client, stored, err := a.stravaClient(c.Context)
			if err != nil {
				log.Debug().Err(err).Msg("briefing without Strava totals")
			} else {
				athleteID = stored.AthleteID
			}

			text := a.briefings(client, athleteID).BuildBriefing(c.Context).Markdown()
			if !c.Bool("send") {
				fmt.Fprint(c.App.Writer, text)
				return nil
			}

			if err := a.cfg.ValidateTelegram(); err != nil {
				return err
			}
			tg, err := notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID)
			if err != nil {
				return err
			}
			return tg.Send(c.Context, text)
		},
	}
}

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "harvest and send briefings on schedule, serve /metrics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "now",
				Usage: "harvest once at startup",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(c)
			if err != nil {
				return err
			}
			defer a.Close()

			client, stored, err := a.stravaClient(ctx)
			if err != nil {
				return err
			}
			harvester := a.harvester(client)
			briefings := a.briefings(client, stored.AthleteID)

			var tg *notify.Telegram
			if err := a.cfg.ValidateTelegram(); err != nil {
				log.Warn().Err(err).Msg("briefings will be logged, not sent")
			} else if tg, err = notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID); err != nil {
				return err
			}

			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			sched := scheduler.New(loc)
			if err := sched.Add(jobHarvest, a.cfg.Schedule.Harvest, func(ctx context.Context) error {
				_, err := harvester.Harvest(ctx, service.HarvestOptions{
					Limit:    service.ScheduledHarvestLimit,
					DaysBack: service.ScheduledHarvestDays,
					Streams:  true,
				})
				return err
			}); err != nil {
				return err
			}
			if err := sched.Add(jobBriefing, a.cfg.Schedule.Briefing, func(ctx context.Context) error {
				text := briefings.BuildBriefing(ctx).Markdown()
				if tg == nil {
					log.Info().Str("briefing", text).Msg("briefing")
					return nil
				}
				return tg.Send(ctx, text)
			}); err != nil {
				return err
			}

			if c.Bool("now") {
				if err := sched.Trigger(ctx, jobHarvest); err != nil {
					log.Error().Err(err).Msg("startup harvest")
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return sched.Run(gctx)
			})
			if addr := a.cfg.Metrics.Address; addr != "" {
				srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error {
					log.Info().Str("address", addr).Msg("serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}
			return g.Wait()
		},
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
