package syncengine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/pkg/util"
)

const maxErrorLength = 500

// StatusStore wraps the sync_status table. Recording a result never fails the caller.
type StatusStore struct {
	repo   repository.SyncStatusRepo
	clock  Clock
	logger *zap.Logger
}

func NewStatusStore(repo repository.SyncStatusRepo, clock Clock, logger *zap.Logger) *StatusStore {
	if clock == nil {
		clock = SystemClock
	}
	return &StatusStore{repo: repo, clock: clock, logger: logger}
}

func (s *StatusStore) EnsureRows(ctx context.Context, companyIDs []string, platforms []models.Platform) error {
	return s.repo.EnsureRows(ctx, companyIDs, platforms)
}

func (s *StatusStore) ListAll(ctx context.Context) ([]models.SyncStatus, error) {
	return s.repo.ListAll(ctx)
}

// RecordResult applies a task outcome. Skipped tasks leave the row alone.
// Store errors are logged and swallowed.
func (s *StatusStore) RecordResult(ctx context.Context, companyID string, platform models.Platform, outcome Outcome, detail string) {
	now := s.clock.Now().UTC()

	var err error
	switch {
	case outcome == OutcomeSuccess:
		err = s.repo.MarkSuccess(ctx, companyID, platform, now)
	case outcome.Failed():
		msg := util.Truncate(string(outcome)+": "+detail, maxErrorLength)
		err = s.repo.MarkFailure(ctx, companyID, platform, now, msg)
	default:
		return
	}

	if err != nil {
		s.logger.Error("Failed to record sync status",
			zap.String("company_id", companyID),
			zap.String("platform", string(platform)),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}

// Snapshot is a read-only company -> platform -> status view built once per
// run. Writes during the run go to the store only.
type Snapshot struct {
	byCompany map[string]map[models.Platform]models.SyncStatus
}

func NewSnapshot(rows []models.SyncStatus) *Snapshot {
	s := &Snapshot{byCompany: make(map[string]map[models.Platform]models.SyncStatus)}
	for _, row := range rows {
		byPlatform, ok := s.byCompany[row.CompanyID]
		if !ok {
			byPlatform = make(map[models.Platform]models.SyncStatus)
			s.byCompany[row.CompanyID] = byPlatform
		}
		byPlatform[row.Platform] = cloneStatus(row)
	}
	return s
}

// Status returns a copy of the row, or a blank row when none exists
func (s *Snapshot) Status(companyID string, platform models.Platform) (models.SyncStatus, bool) {
	row, ok := s.byCompany[companyID][platform]
	if !ok {
		return models.SyncStatus{CompanyID: companyID, Platform: platform}, false
	}
	return cloneStatus(row), true
}

// ForCompany returns the company's rows for the given platforms, in that order.
// Missing rows come back blank.
func (s *Snapshot) ForCompany(companyID string, platforms []models.Platform) []models.SyncStatus {
	out := make([]models.SyncStatus, 0, len(platforms))
	for _, p := range platforms {
		row, _ := s.Status(companyID, p)
		out = append(out, row)
	}
	return out
}

func cloneStatus(row models.SyncStatus) models.SyncStatus {
	c := row
	c.LastSuccessAt = cloneTime(row.LastSuccessAt)
	c.LastAttemptAt = cloneTime(row.LastAttemptAt)
	if row.LastError != nil {
		msg := *row.LastError
		c.LastError = &msg
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
