package service

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/config"
)

type Scheduler struct {
	config      *config.SchedulerConfig
	logger      *zap.Logger
	syncService *SyncService
	engine      *cron.Cron
	ctx         context.Context
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, syncService *SyncService) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		config:      cfg,
		logger:      logger,
		syncService: syncService,
		engine: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	s.ctx = ctx
	if _, err := s.engine.AddFunc(s.config.Spec, s.runSync); err != nil {
		s.logger.Error("Invalid cron spec", zap.String("spec", s.config.Spec), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("spec", s.config.Spec))
	s.engine.Start()
	return nil
}

func (s *Scheduler) Stop() {
	// waits for a running job to return
	<-s.engine.Stop().Done()
	s.logger.Info("Scheduler shutdown completed")
}

// Next is the next scheduled run, zero when nothing is scheduled
func (s *Scheduler) Next() time.Time {
	entries := s.engine.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runSync() {
	start := time.Now()
	resp, err := s.syncService.Run(s.ctx, SyncRequest{Trigger: TriggerCron})
	duration := time.Since(start)

	if errors.Is(err, ErrRunInProgress) {
		s.logger.Info("Skipping scheduled sync, a run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error("Scheduled sync failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Info("Scheduled sync completed",
		zap.String("run_id", resp.RunID),
		zap.Int("success", resp.Performance.SuccessCount),
		zap.Int("errors", resp.Performance.ErrorCount),
		zap.Bool("partial", resp.Partial),
		zap.Duration("duration", duration))
}

// cronLogger routes robfig/cron logs through zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
