package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/agencylens/internal/models"
)

type SyncStatusRepo interface {
	// EnsureRows inserts a blank row for every missing (company, platform) pair.
	// Existing rows are left untouched.
	EnsureRows(ctx context.Context, companyIDs []string, platforms []models.Platform) error
	MarkSuccess(ctx context.Context, companyID string, platform models.Platform, at time.Time) error
	MarkFailure(ctx context.Context, companyID string, platform models.Platform, at time.Time, lastError string) error
	ListAll(ctx context.Context) ([]models.SyncStatus, error)
}

type syncStatusRepoImpl struct {
	db *gorm.DB
}

func NewSyncStatusRepository(db *gorm.DB) SyncStatusRepo {
	return &syncStatusRepoImpl{db: db}
}

var syncStatusKey = []clause.Column{{Name: "company_id"}, {Name: "platform"}}

func (r *syncStatusRepoImpl) EnsureRows(ctx context.Context, companyIDs []string, platforms []models.Platform) error {
	rows := make([]models.SyncStatus, 0, len(companyIDs)*len(platforms))
	for _, id := range companyIDs {
		for _, p := range platforms {
			rows = append(rows, models.SyncStatus{CompanyID: id, Platform: p})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: syncStatusKey, DoNothing: true}).
		CreateInBatches(&rows, 200).Error
}

func (r *syncStatusRepoImpl) MarkSuccess(ctx context.Context, companyID string, platform models.Platform, at time.Time) error {
	row := models.SyncStatus{
		CompanyID:     companyID,
		Platform:      platform,
		LastSuccessAt: &at,
		LastAttemptAt: &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: syncStatusKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_success_at":      at,
			"last_attempt_at":      at,
			"consecutive_failures": 0,
			"last_error":           nil,
			"updated_at":           at,
		}),
	}).Create(&row).Error
}

func (r *syncStatusRepoImpl) MarkFailure(ctx context.Context, companyID string, platform models.Platform, at time.Time, lastError string) error {
	row := models.SyncStatus{
		CompanyID:           companyID,
		Platform:            platform,
		LastAttemptAt:       &at,
		ConsecutiveFailures: 1,
		LastError:           &lastError,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: syncStatusKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_attempt_at":      at,
			"consecutive_failures": gorm.Expr("sync_status.consecutive_failures + 1"),
			"last_error":           lastError,
			"updated_at":           at,
		}),
	}).Create(&row).Error
}

func (r *syncStatusRepoImpl) ListAll(ctx context.Context) ([]models.SyncStatus, error) {
	rows := make([]models.SyncStatus, 0)
	if err := r.db.WithContext(ctx).Order("company_id ASC, platform ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
