package syncengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
)

type RunOptions struct {
	// Force enqueues every pair regardless of MinInterval
	Force bool
	// MinInterval skips pairs that succeeded more recently than this
	MinInterval time.Duration
}

// Engine prepares the work order for a run and executes it
type Engine struct {
	status    *StatusStore
	task      *Task
	scheduler *Scheduler
	platforms []models.Platform
	clock     Clock
	logger    *zap.Logger
}

func NewEngine(status *StatusStore, task *Task, scheduler *Scheduler, platforms []models.Platform, clock Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{
		status:    status,
		task:      task,
		scheduler: scheduler,
		platforms: platforms,
		clock:     clock,
		logger:    logger,
	}
}

func (e *Engine) Platforms() []models.Platform {
	return append([]models.Platform(nil), e.platforms...)
}

// Plan is the ranked work order for one run
type Plan struct {
	Companies []models.Company
	Pending   map[string][]models.Platform
	Snapshot  *Snapshot
}

// Prepare ensures status rows exist, snapshots them, drops fresh pairs and
// ranks what is left. It fails only when the statuses cannot be read.
func (e *Engine) Prepare(ctx context.Context, companies []models.Company, opts RunOptions) (*Plan, error) {
	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	if err := e.status.EnsureRows(ctx, ids, e.platforms); err != nil {
		e.logger.Error("Failed to ensure sync status rows", zap.Error(err))
	}

	rows, err := e.status.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sync status: %w", err)
	}
	snapshot := NewSnapshot(rows)
	now := e.clock.Now()

	plan := &Plan{Pending: make(map[string][]models.Platform), Snapshot: snapshot}
	relevant := make(map[string][]models.SyncStatus)
	var queued []models.Company
	for _, c := range companies {
		var pending []models.Platform
		for _, p := range e.platforms {
			st, _ := snapshot.Status(c.ID, p)
			if opts.Force || st.LastSuccessAt == nil || now.Sub(*st.LastSuccessAt) >= opts.MinInterval {
				pending = append(pending, p)
				relevant[c.ID] = append(relevant[c.ID], st)
			}
		}
		if len(pending) == 0 {
			continue
		}
		plan.Pending[c.ID] = pending
		queued = append(queued, c)
	}
	plan.Companies = Rank(queued, relevant)
	return plan, nil
}

// Execute runs the plan through the batch scheduler
func (e *Engine) Execute(ctx context.Context, plan *Plan) RunResult {
	return e.scheduler.Run(ctx, plan.Companies, func(ctx context.Context, company models.Company) CompanyResult {
		platforms := plan.Pending[company.ID]
		tasks := make([]TaskResult, 0, len(platforms))
		for _, p := range platforms {
			prev, _ := plan.Snapshot.Status(company.ID, p)
			tasks = append(tasks, e.task.Run(ctx, company.ID, p, prev))
		}
		return NewCompanyResult(company, tasks)
	})
}

// Run is Prepare followed by Execute
func (e *Engine) Run(ctx context.Context, companies []models.Company, opts RunOptions) (RunResult, error) {
	plan, err := e.Prepare(ctx, companies, opts)
	if err != nil {
		return RunResult{}, err
	}
	return e.Execute(ctx, plan), nil
}
