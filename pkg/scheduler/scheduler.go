package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Stage is one pipeline run invoked on a tick.
type Stage func(ctx context.Context) error

// Scheduler periodically triggers the ETL stage and then the forecasting
// stage. A failing stage is logged and never crashes the loop; the next tick
// proceeds regardless. A TryLock guard drops a tick that would overlap a run
// still in progress.
type Scheduler struct {
	etl      Stage
	forecast Stage
	interval time.Duration
	logger   *zap.Logger
	running  sync.Mutex
}

func New(etl, forecast Stage, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{
		etl:      etl,
		forecast: forecast,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled: one immediate pass, then one per
// interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping, context cancelled")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunDailyAt blocks until ctx is cancelled, running the ETL stage alone at a
// fixed wall-clock time every day ("03:00").
func (s *Scheduler) RunDailyAt(ctx context.Context, at string) error {
	spec, err := dailySpec(at)
	if err != nil {
		return err
	}

	runner := cron.New(cron.WithLogger(cronLogger{logger: s.logger}))
	_, err = runner.AddFunc(spec, func() {
		s.runStage(ctx, "etl", s.etl)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily etl: %w", err)
	}

	s.logger.Info("Daily ETL scheduler started", zap.String("at", at))
	runner.Start()

	<-ctx.Done()
	s.logger.Info("Daily ETL scheduler stopping, context cancelled")
	stopCtx := runner.Stop()
	<-stopCtx.Done()
	return nil
}

// RunOnce executes one ETL-then-forecast pass, unless a previous pass is
// still running, in which case the tick is dropped with a warning.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("Previous run still in progress, dropping this tick")
		return
	}
	defer s.running.Unlock()

	s.runStage(ctx, "etl", s.etl)
	if ctx.Err() != nil {
		return
	}
	s.runStage(ctx, "forecast", s.forecast)
}

func (s *Scheduler) runStage(ctx context.Context, name string, stage Stage) {
	if stage == nil {
		return
	}
	s.logger.Info("Starting stage", zap.String("stage", name))
	if err := stage(ctx); err != nil {
		s.logger.Error("Stage failed", zap.String("stage", name), zap.Error(err))
		return
	}
	s.logger.Info("Stage completed", zap.String("stage", name))
}

// dailySpec converts "HH:MM" to a cron spec.
func dailySpec(at string) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in daily time %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in daily time %q", at)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, zap.Any("params", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, zap.Error(err), zap.Any("params", keysAndValues))
}
