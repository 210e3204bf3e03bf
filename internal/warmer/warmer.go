// Package warmer recomputes the aggregate feeds on a schedule so visitors
// rarely hit a cold cache.
package warmer

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"portfolio-api/internal/common/errors"
	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/common/validation"
	"portfolio-api/internal/locks"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// LockKey names the lock that keeps warming to one instance
const LockKey = "warmer"

// DefaultSchedule warms every fifteen minutes
const DefaultSchedule = "*/15 * * * *"

// Job is one warming task
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config configures the warmer
type Config struct {
	Schedule string
	Timeout  time.Duration
	LockTTL  time.Duration
}

// Warmer runs jobs on a cron schedule under a distributed lock
type Warmer struct {
	config Config
	locker locks.Locker
	jobs   []Job
	cron   *cron.Cron
	logger logging.Logger
}

// New creates a warmer. The schedule is validated here so a bad value fails at startup.
func New(config Config, locker locks.Locker, logger logging.Logger, jobs ...Job) (*Warmer, error) {
	if locker == nil {
		return nil, errors.ConfigError("warmer requires a locker")
	}
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.Timeout + 30*time.Second
	}
	if logger == nil {
		logger = logging.Component("warmer")
	}

	schedule, err := validation.ParseSchedule(config.Schedule)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid warm schedule %q: %v", config.Schedule, err))
	}

	w := &Warmer{
		config: config,
		locker: locker,
		jobs:   jobs,
		cron:   cron.New(),
		logger: logger,
	}
	w.cron.Schedule(schedule, cron.FuncJob(w.tick))

	return w, nil
}

// Start begins scheduled runs
func (w *Warmer) Start() {
	w.logger.Info("Cache warmer started",
		logging.String("schedule", w.config.Schedule),
		logging.Int("jobs", len(w.jobs)),
	)
	w.cron.Start()
}

// Stop halts scheduling and waits for a running pass or ctx
func (w *Warmer) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.logger.Warn("Cache warmer stop timed out with a pass still running")
	}
}

func (w *Warmer) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.Timeout)
	defer cancel()

	// failures are logged per job in RunOnce
	_, _ = w.RunOnce(ctx)
}

// RunOnce runs every job if this instance wins the lock. It reports whether
// the pass ran and the first job error. All jobs run even when one fails.
func (w *Warmer) RunOnce(ctx context.Context) (bool, error) {
	lock, err := w.locker.Acquire(ctx, LockKey, w.config.LockTTL)
	if err != nil {
		if stderrors.Is(err, locks.ErrNotAcquired) {
			w.logger.Debug("Skipping warm pass, another instance holds the lock")
			return false, nil
		}
		w.logger.Warn("Skipping warm pass, lock unavailable", logging.Err(err))
		return false, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			w.logger.Warn("Failed to release warmer lock", logging.Err(err))
		}
	}()

	start := time.Now()
	var g errgroup.Group
	for _, job := range w.jobs {
		job := job
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.InternalError(fmt.Sprintf("warm job %s panicked: %v", job.Name, r), nil)
				}
				if err != nil {
					w.logger.Error("Warm job failed", err, logging.String("job", job.Name))
				}
			}()
			return job.Run(ctx)
		})
	}

	err = g.Wait()
	w.logger.Info("Warm pass finished",
		logging.Duration("duration", time.Since(start)),
		logging.Bool("ok", err == nil),
	)
	return true, err
}
