package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

const (
	cleanupSchedule = "@daily"
	cleanupTimeout  = 30 * time.Second
)

// SweepRunner performs one full evaluation pass.
type SweepRunner interface {
	SweepAll(ctx context.Context) (EvaluationResult, error)
}

// RetentionStore deletes read notifications past their retention.
type RetentionStore interface {
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// SweeperConfig configures a Sweeper. An empty Schedule disables periodic
// sweeps and a non-positive RetentionDays disables cleanup.
type SweeperConfig struct {
	Schedule      string
	RetentionDays int
	Now           func() time.Time
}

// Sweeper runs SweepAll on a cron schedule and purges old read
// notifications once a day.
type Sweeper struct {
	runner    SweepRunner
	retention RetentionStore
	cfg       SweeperConfig
	metrics   *metrics.AlertingMetrics
	log       logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewSweeper creates a Sweeper. retention may be nil.
func NewSweeper(runner SweepRunner, retention RetentionStore, cfg SweeperConfig, m *metrics.AlertingMetrics, log logger.Logger) *Sweeper {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Sweeper{
		runner:    runner,
		retention: retention,
		cfg:       cfg,
		metrics:   m,
		log:       log.Module("sweeper"),
	}
}

// Start registers the jobs and starts the scheduler. Calling Start on a
// running Sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: s.log})),
	)
	if s.cfg.Schedule != "" {
		if _, err := c.AddFunc(s.cfg.Schedule, s.runScheduledSweep); err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Context("sweep_schedule", s.cfg.Schedule).
				Build()
		}
	}
	if s.cfg.RetentionDays > 0 && s.retention != nil {
		if _, err := c.AddFunc(cleanupSchedule, s.runScheduledCleanup); err != nil {
			return fmt.Errorf("failed to schedule notification cleanup: %w", err)
		}
	}
	if len(c.Entries()) == 0 {
		s.log.Info("no periodic jobs configured")
		return nil
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	c.Start()
	s.log.Info("sweeper started",
		logger.String("schedule", s.cfg.Schedule),
		logger.Int("retention_days", s.cfg.RetentionDays))
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.log.Info("sweeper stopped")
}

// RunOnce performs one sweep and records its outcome.
func (s *Sweeper) RunOnce(ctx context.Context) (EvaluationResult, error) {
	result, err := s.runner.SweepAll(ctx)
	s.metrics.RecordSweep(err, s.cfg.Now())
	if err != nil {
		s.log.Error("alert sweep finished with errors", logger.Error(err))
	}
	return result, err
}

// Cleanup deletes read notifications older than the retention window.
func (s *Sweeper) Cleanup(ctx context.Context) (int64, error) {
	if s.cfg.RetentionDays <= 0 || s.retention == nil {
		return 0, nil
	}
	cutoff := s.cfg.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := s.retention.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		s.metrics.RecordStoreError("cleanup_notifications")
		return 0, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "cleanup_notifications").
			Build()
	}
	if deleted > 0 {
		s.log.Info("notification cleanup completed",
			logger.Int64("deleted", deleted),
			logger.Int("retention_days", s.cfg.RetentionDays))
	}
	return deleted, nil
}

func (s *Sweeper) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

func (s *Sweeper) runScheduledSweep() {
	_, _ = s.RunOnce(s.jobContext())
}

func (s *Sweeper) runScheduledCleanup() {
	ctx, cancel := context.WithTimeout(s.jobContext(), cleanupTimeout)
	defer cancel()
	if _, err := s.Cleanup(ctx); err != nil {
		s.log.Error("notification cleanup failed", logger.Error(err))
	}
}

// cronLogger adapts the service logger to cron's job wrapper logging.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
