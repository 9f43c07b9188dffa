// Package scheduler runs the daemon's periodic jobs on cron specs with a
// seconds field, e.g. "0 15 0,6,12,18 * * *".
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicateJob = errors.New("job already registered")
	ErrUnknownJob   = errors.New("unknown job")
	ErrJobRunning   = errors.New("job still running")
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	name     string
	spec     string
	schedule cron.Schedule
	job      Job
	running  atomic.Bool
}

// Scheduler wraps a cron runner. A job that is still running when its next
// tick arrives skips that tick.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location

	mu   sync.Mutex
	jobs map[string]*entry
	base context.Context
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.NewWithLocation(loc),
		loc:  loc,
		jobs: make(map[string]*entry),
		base: context.Background(),
	}
}

// Add registers job under name on spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	schedule, err := cron.Parse(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q for %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	e := &entry{name: name, spec: spec, schedule: schedule, job: job}
	s.jobs[name] = e
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		if err := s.run(s.context(), e); err != nil && !errors.Is(err, ErrJobRunning) {
			log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}))

	log.Debug().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Trigger runs a registered job immediately.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

// Next returns the next activation of name after t.
func (s *Scheduler) Next(name string, t time.Time) (time.Time, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return e.schedule.Next(t.In(s.loc)), nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	for _, e := range s.jobs {
		log.Info().
			Str("job", e.name).
			Str("spec", e.spec).
			Time("next", e.schedule.Next(time.Now().In(s.loc))).
			Msg("job armed")
	}
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.running.CompareAndSwap(false, true) {
		log.Warn().Str("job", e.name).Msg("previous run still in progress, skipping")
		return fmt.Errorf("%w: %s", ErrJobRunning, e.name)
	}
	defer e.running.Store(false)

	start := time.Now()
	log.Info().Str("job", e.name).Msg("job started")
	if err := e.job(ctx); err != nil {
		return fmt.Errorf("%s: %w", e.name, err)
	}
	log.Info().Str("job", e.name).Dur("elapsed", time.Since(start)).Msg("job finished")
	return nil
}
