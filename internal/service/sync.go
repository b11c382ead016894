package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/metrics"
	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
)

const (
	TriggerCron   = "cron"
	TriggerHTTP   = "http"
	TriggerManual = "manual"
	TriggerCLI    = "cli"
)

// SyncRunner executes one pass over a company list
type SyncRunner interface {
	Run(ctx context.Context, companies []models.Company, opts syncengine.RunOptions) (syncengine.RunResult, error)
}

type SyncRequest struct {
	CompanyIDs []string
	Force      bool
	Trigger    string
}

type SyncResponse struct {
	Message     string                     `json:"message"`
	Timestamp   time.Time                  `json:"timestamp"`
	RunID       string                     `json:"runId"`
	Results     []syncengine.CompanyResult `json:"results"`
	Performance syncengine.Performance     `json:"performance"`
	Partial     bool                       `json:"partial"`
	Deferred    []string                   `json:"deferred,omitempty"`
}

// SyncService guards, runs and records sync passes
type SyncService struct {
	companies   repository.CompanyRepo
	runner      SyncRunner
	guard       RunGuard
	monitoring  *MonitoringService
	cronSecret  string
	minInterval time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewSyncService(
	companies repository.CompanyRepo,
	runner SyncRunner,
	guard RunGuard,
	monitoring *MonitoringService,
	cronSecret string,
	minInterval time.Duration,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		companies:   companies,
		runner:      runner,
		guard:       guard,
		monitoring:  monitoring,
		cronSecret:  cronSecret,
		minInterval: minInterval,
		now:         time.Now,
		logger:      logger,
	}
}

// VerifySecret checks the shared cron secret. An unset secret rejects everything.
func (s *SyncService) VerifySecret(secret string) error {
	if s.cronSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.cronSecret)) != 1 {
		return ErrUnauthorizedSecret
	}
	return nil
}

// Run executes one pass. The pass ignores ctx cancellation and is bounded by
// the scheduler's execution budget instead.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	release, ok, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	if req.Trigger == "" {
		req.Trigger = TriggerHTTP
	}

	var companies []models.Company
	if len(req.CompanyIDs) > 0 {
		companies, err = s.companies.ListByIDs(ctx, req.CompanyIDs)
	} else {
		companies, err = s.companies.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("trigger", req.Trigger))
	logger.Info("Starting sync run",
		zap.Int("companies", len(companies)),
		zap.Bool("force", req.Force))

	run := s.monitoring.StartRun(ctx, runID, req.Trigger, req.Force, len(companies))

	result, err := s.runner.Run(ctx, companies, syncengine.RunOptions{
		Force:       req.Force,
		MinInterval: s.minInterval,
	})
	if err != nil {
		logger.Error("Sync run failed", zap.Error(err))
		s.monitoring.FinishRun(ctx, run, result)
		return nil, err
	}
	s.monitoring.FinishRun(ctx, run, result)

	perf := result.Performance
	metrics.SyncRunDuration.WithLabelValues(req.Trigger).Observe(float64(perf.DurationMs) / 1000)

	logger.Info("Sync run finished",
		zap.Int("companies", len(result.Results)),
		zap.Int("batches", perf.BatchesProcessed),
		zap.Int("success", perf.SuccessCount),
		zap.Int("errors", perf.ErrorCount),
		zap.Bool("partial", result.Partial),
		zap.Duration("duration", time.Duration(perf.DurationMs)*time.Millisecond))

	results := result.Results
	if results == nil {
		results = []syncengine.CompanyResult{}
	}
	return &SyncResponse{
		Message:     runMessage(result),
		Timestamp:   s.now().UTC(),
		RunID:       runID,
		Results:     results,
		Performance: perf,
		Partial:     result.Partial,
		Deferred:    result.Deferred,
	}, nil
}

func runMessage(result syncengine.RunResult) string {
	switch {
	case result.Partial:
		return fmt.Sprintf("Sync partially completed: %d companies synced, %d deferred",
			len(result.Results), len(result.Deferred))
	case len(result.Results) == 0:
		return "No companies need syncing"
	default:
		return fmt.Sprintf("Sync completed for %d companies", len(result.Results))
	}
}
