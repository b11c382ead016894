package syncengine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifuryst/agencylens/internal/metrics"
	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/retry"
)

type SchedulerConfig struct {
	BatchSize    int
	BatchDelay   time.Duration
	MaxExecution time.Duration
}

// CompanyJob syncs every pending platform of one company
type CompanyJob func(ctx context.Context, company models.Company) CompanyResult

// BatchResult summarizes one issued batch
type BatchResult struct {
	Index        int      `json:"index"`
	CompanyIDs   []string `json:"companyIds"`
	DurationMs   int64    `json:"durationMs"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
}

// RunResult is the outcome of one scheduler pass. Partial means the budget
// (or the caller's context) stopped the run before every batch was issued.
type RunResult struct {
	Results     []CompanyResult `json:"results"`
	Batches     []BatchResult   `json:"batches"`
	Performance Performance     `json:"performance"`
	Partial     bool            `json:"partial"`
	Deferred    []string        `json:"deferred,omitempty"`
}

// Scheduler runs companies in fixed-size concurrent batches with a pause
// between batches and a wall-clock budget checked before each batch.
type Scheduler struct {
	cfg    SchedulerConfig
	clock  Clock
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

func NewScheduler(cfg SchedulerConfig, clock Clock, logger *zap.Logger) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{cfg: cfg, clock: clock, sleep: retry.Sleep, logger: logger}
}

// Partition splits companies into consecutive groups of size
func Partition(companies []models.Company, size int) [][]models.Company {
	if size <= 0 {
		size = 1
	}
	var out [][]models.Company
	for start := 0; start < len(companies); start += size {
		end := start + size
		if end > len(companies) {
			end = len(companies)
		}
		out = append(out, companies[start:end])
	}
	return out
}

// Run issues batches in order until all are done or the budget is spent.
// Issued batches always run to completion.
func (s *Scheduler) Run(ctx context.Context, companies []models.Company, job CompanyJob) RunResult {
	tracker := NewTracker(s.clock)
	tracker.Start()
	start := s.clock.Now()

	batches := Partition(companies, s.cfg.BatchSize)
	res := RunResult{Results: make([]CompanyResult, 0, len(companies))}

	for i, batch := range batches {
		if s.budgetSpent(start) {
			elapsed := s.clock.Now().Sub(start)
			res.Partial = true
			s.logger.Warn("Execution budget reached, deferring remaining batches",
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", s.cfg.MaxExecution),
				zap.Int("remaining_batches", len(batches)-i))
		}
		if ctx.Err() != nil {
			res.Partial = true
		}
		if res.Partial {
			for _, rest := range batches[i:] {
				for _, c := range rest {
					res.Deferred = append(res.Deferred, c.ID)
				}
			}
			break
		}

		batchStart := s.clock.Now()
		results := s.runBatch(ctx, batch, job)
		took := s.clock.Now().Sub(batchStart)
		tracker.RecordBatch(results, took)

		summary := BatchResult{Index: i, DurationMs: took.Milliseconds()}
		for _, r := range results {
			summary.CompanyIDs = append(summary.CompanyIDs, r.CompanyID)
			if r.Success {
				summary.SuccessCount++
			} else {
				summary.ErrorCount++
			}
		}
		res.Batches = append(res.Batches, summary)
		res.Results = append(res.Results, results...)

		s.logger.Info("Sync batch completed",
			zap.Int("batch", i+1),
			zap.Int("of", len(batches)),
			zap.Int("companies", len(batch)),
			zap.Int("success", summary.SuccessCount),
			zap.Int("errors", summary.ErrorCount),
			zap.Duration("duration", took))

		if i < len(batches)-1 && s.cfg.BatchDelay > 0 && !s.budgetSpent(start) {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				s.logger.Warn("Sync run interrupted between batches", zap.Error(err))
			}
		}
	}

	res.Performance = tracker.Finish()
	if res.Partial {
		metrics.SyncPartialRuns.Inc()
	}
	return res
}

func (s *Scheduler) budgetSpent(start time.Time) bool {
	return s.cfg.MaxExecution > 0 && s.clock.Now().Sub(start) >= s.cfg.MaxExecution
}

// runBatch fans out one goroutine per company and waits for all of them.
// A failing or panicking company never cancels its siblings.
func (s *Scheduler) runBatch(ctx context.Context, batch []models.Company, job CompanyJob) []CompanyResult {
	results := make([]CompanyResult, len(batch))
	var g errgroup.Group
	for i, company := range batch {
		i, company := i, company
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Company sync panicked",
						zap.String("company_id", company.ID),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					results[i] = CompanyResult{
						CompanyID:   company.ID,
						CompanyName: company.Name,
						Error:       fmt.Sprintf("%s: panic: %v", OutcomeAPIError, r),
					}
				}
			}()
			results[i] = job(ctx, company)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
