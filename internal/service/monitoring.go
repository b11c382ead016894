package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
)

// MonitoringService persists run history and the error log
type MonitoringService struct {
	runs   repository.RunRepo
	now    func() time.Time
	logger *zap.Logger
}

func NewMonitoringService(runs repository.RunRepo, now func() time.Time, logger *zap.Logger) *MonitoringService {
	if now == nil {
		now = time.Now
	}
	return &MonitoringService{
		runs:   runs,
		now:    now,
		logger: logger,
	}
}

// ErrorLogOption sets optional error log fields
type ErrorLogOption func(*models.ErrorLog)

func WithPlatform(platform models.Platform) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.Platform = platform
	}
}

func WithCompany(companyID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.CompanyID = &companyID
	}
}

func WithRun(runID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.RunID = &runID
	}
}

func WithOutcome(outcome syncengine.Outcome) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.Outcome = string(outcome)
	}
}

func WithContext(ctx map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if raw, err := json.Marshal(ctx); err == nil {
			e.Context = datatypes.JSON(raw)
		}
	}
}

func newErrorLog(level, source, message string, options ...ErrorLogOption) models.ErrorLog {
	entry := models.ErrorLog{
		Level:   level,
		Source:  source,
		Message: message,
	}
	for _, option := range options {
		option(&entry)
	}
	return entry
}

// RecordError writes one error log entry
func (m *MonitoringService) RecordError(ctx context.Context, level, source, message string, options ...ErrorLogOption) error {
	return m.runs.CreateErrorLogs(ctx, []models.ErrorLog{newErrorLog(level, source, message, options...)})
}

// StartRun persists the opening row of a sync pass. A failed insert is logged
// and the run proceeds without history.
func (m *MonitoringService) StartRun(ctx context.Context, runID, trigger string, forced bool, companies int) *models.SyncRun {
	run := &models.SyncRun{
		ID:             runID,
		Trigger:        trigger,
		Forced:         forced,
		StartedAt:      m.now().UTC(),
		CompaniesTotal: companies,
	}
	if err := m.runs.CreateRun(ctx, run); err != nil {
		m.logger.Error("Failed to record sync run", zap.String("run_id", runID), zap.Error(err))
	}
	return run
}

// FinishRun stores the run summary and one error log per failed task
func (m *MonitoringService) FinishRun(ctx context.Context, run *models.SyncRun, result syncengine.RunResult) {
	finished := m.now().UTC()
	perf := result.Performance
	run.FinishedAt = &finished
	run.DurationMs = perf.DurationMs
	run.BatchesProcessed = perf.BatchesProcessed
	run.SuccessCount = perf.SuccessCount
	run.ErrorCount = perf.ErrorCount
	run.Partial = result.Partial

	if err := m.runs.SaveRun(ctx, run); err != nil {
		m.logger.Error("Failed to save sync run", zap.String("run_id", run.ID), zap.Error(err))
	}

	var logs []models.ErrorLog
	for _, company := range result.Results {
		for _, task := range company.Platforms {
			if !task.Outcome.Failed() {
				continue
			}
			logs = append(logs, newErrorLog("ERROR", "sync", task.Error,
				WithRun(run.ID),
				WithCompany(task.CompanyID),
				WithPlatform(task.Platform),
				WithOutcome(task.Outcome),
				WithContext(map[string]interface{}{
					"window_from": task.WindowFrom,
					"window_to":   task.WindowTo,
					"backfill":    task.Backfill,
				}),
			))
		}
	}
	if result.Partial && len(result.Deferred) > 0 {
		logs = append(logs, newErrorLog("WARN", "sync",
			fmt.Sprintf("execution budget reached, %d companies deferred", len(result.Deferred)),
			WithRun(run.ID),
			WithContext(map[string]interface{}{"deferred": result.Deferred}),
		))
	}
	if err := m.runs.CreateErrorLogs(ctx, logs); err != nil {
		m.logger.Error("Failed to record sync errors", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// RecentRuns returns the latest runs, newest first
func (m *MonitoringService) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return m.runs.ListRuns(ctx, limit)
}

func (m *MonitoringService) RunErrors(ctx context.Context, runID string) ([]models.ErrorLog, error) {
	return m.runs.ListErrorLogs(ctx, runID)
}

// CleanupOldData deletes run history older than daysToKeep
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := m.now().AddDate(0, 0, -daysToKeep)
	n, err := m.runs.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync history: %w", err)
	}
	return n, nil
}
