package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/internal/services"
	"github.com/servimatch/servimatch/pkg/logger"
)

const defaultSweepSpec = "@daily"

// Rescorer runs the periodic trust-score sweep that keeps every
// professional's persisted score aligned with their current aggregates.
type Rescorer struct {
	ranking *services.RankingService
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	schedule string
}

// Option customises the Rescorer.
type Option func(*Rescorer)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Rescorer) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for sweep logging.
func WithNow(now func() time.Time) Option {
	return func(r *Rescorer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(r *Rescorer) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// NewRescorer constructs a Rescorer with sensible defaults.
func NewRescorer(ranking *services.RankingService, opts ...Option) (*Rescorer, error) {
	if ranking == nil {
		return nil, errors.New("rescorer: ranking service is required")
	}

	rescorer := &Rescorer{
		ranking:  ranking,
		now:      time.Now,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(rescorer)
	}

	if rescorer.cron == nil {
		rescorer.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return rescorer, nil
}

// Start registers the sweep with the cron scheduler and launches it.
func (r *Rescorer) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.log.Warn("trust score sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	r.log.Info("trust score sweep scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the underlying scheduler, waiting for a running sweep to finish.
func (r *Rescorer) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes a single sweep. Used by the scheduler, tests, and the
// manual rescore endpoint.
func (r *Rescorer) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	started := r.now()

	var errs error
	completed, err := r.ranking.RescoreAll(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	elapsed := r.now().Sub(started)
	result, message := "success", ""
	if errs != nil {
		result, message = "failure", errs.Error()
	}
	monitoring.RecordMaintenanceRun("trust_score_sweep", result, message, elapsed)

	r.log.Info("trust score sweep complete",
		zap.Int("professionals", completed),
		zap.Duration("elapsed", elapsed),
	)
	return errs
}
