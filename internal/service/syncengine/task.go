package syncengine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/pkg/retry"
	"github.com/ifuryst/agencylens/pkg/util"
)

// TokenSource resolves the access token behind a mapping
type TokenSource interface {
	AccessToken(ctx context.Context, mapping *models.PlatformMapping) (string, error)
}

// AdapterSource resolves the adapter for a platform
type AdapterSource interface {
	Get(platform models.Platform) (provider.Adapter, error)
}

type TaskConfig struct {
	LookbackDays int
	Retry        retry.Policy
}

// Task syncs one company on one platform
type Task struct {
	mappings repository.MappingRepo
	tokens   TokenSource
	adapters AdapterSource
	metrics  repository.MetricRepo
	status   *StatusStore
	clock    Clock
	cfg      TaskConfig
	logger   *zap.Logger
}

func NewTask(
	mappings repository.MappingRepo,
	tokens TokenSource,
	adapters AdapterSource,
	metrics repository.MetricRepo,
	status *StatusStore,
	clock Clock,
	cfg TaskConfig,
	logger *zap.Logger,
) *Task {
	if clock == nil {
		clock = SystemClock
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	cfg.Retry.Retryable = provider.IsRetryable
	return &Task{
		mappings: mappings,
		tokens:   tokens,
		adapters: adapters,
		metrics:  metrics,
		status:   status,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the task and records its outcome in the status store. prev is
// the pair's status from the run snapshot. Run never panics.
func (t *Task) Run(ctx context.Context, companyID string, platform models.Platform, prev models.SyncStatus) (res TaskResult) {
	started := t.clock.Now()
	res = TaskResult{CompanyID: companyID, Platform: platform}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Sync task panicked",
				zap.String("company_id", companyID),
				zap.String("platform", string(platform)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res.Outcome = OutcomeAPIError
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.DurationMs = t.clock.Now().Sub(started).Milliseconds()
		t.status.RecordResult(ctx, companyID, platform, res.Outcome, res.Error)
	}()

	window := ComputeWindow(prev.LastSuccessAt, started, t.cfg.LookbackDays)
	res.WindowFrom = util.FormatDate(window.Start)
	res.WindowTo = util.FormatDate(window.End)
	res.Backfill = window.Backfill

	outcome, rows, err := t.sync(ctx, companyID, platform, window)
	res.Outcome = outcome
	res.Rows = rows
	if err != nil {
		res.Error = err.Error()
	}

	fields := []zap.Field{
		zap.String("company_id", companyID),
		zap.String("platform", string(platform)),
		zap.String("outcome", string(outcome)),
		zap.String("from", res.WindowFrom),
		zap.String("to", res.WindowTo),
		zap.Int("rows", rows),
	}
	switch {
	case outcome.Failed():
		t.logger.Warn("Sync task failed", append(fields, zap.Error(err))...)
	case outcome == OutcomeSkipped:
		t.logger.Debug("Sync task skipped", fields...)
	default:
		t.logger.Info("Sync task completed", fields...)
	}
	return res
}

func (t *Task) sync(ctx context.Context, companyID string, platform models.Platform, window Window) (Outcome, int, error) {
	mapping, err := t.mappings.Get(ctx, companyID, platform)
	if err != nil {
		return OutcomeStoreError, 0, fmt.Errorf("load mapping: %w", err)
	}
	if mapping == nil {
		return OutcomeSkipped, 0, nil
	}

	token, err := t.tokens.AccessToken(ctx, mapping)
	if err != nil {
		if errors.Is(err, provider.ErrAuthRequired) {
			return OutcomeAuthRequired, 0, err
		}
		return OutcomeStoreError, 0, err
	}

	adapter, err := t.adapters.Get(platform)
	if err != nil {
		return OutcomeAPIError, 0, err
	}

	req := provider.Request{
		ExternalID:  mapping.ExternalID,
		AccessToken: token,
		Start:       window.Start,
		End:         window.End,
	}
	rows, err := retry.Do(ctx, t.cfg.Retry, func(ctx context.Context) (models.DailyRows, error) {
		return adapter.FetchDaily(ctx, req)
	})
	if err != nil {
		if errors.Is(err, provider.ErrAuthRequired) {
			return OutcomeAuthRequired, 0, err
		}
		return OutcomeAPIError, 0, err
	}
	if rows == nil {
		rows = models.EmptyRows(platform)
	}
	if rows.Platform() != platform {
		return OutcomeAPIError, 0, fmt.Errorf("adapter returned %s rows for %s", rows.Platform(), platform)
	}

	written, err := t.metrics.Upsert(ctx, rows.Normalize(companyID))
	if err != nil {
		return OutcomeStoreError, 0, fmt.Errorf("upsert metrics: %w", err)
	}
	return OutcomeSuccess, written, nil
}
