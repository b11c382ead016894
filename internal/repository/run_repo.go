package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/models"
)

type RunRepo interface {
	CreateRun(ctx context.Context, run *models.SyncRun) error
	SaveRun(ctx context.Context, run *models.SyncRun) error
	ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
	CreateErrorLogs(ctx context.Context, logs []models.ErrorLog) error
	ListErrorLogs(ctx context.Context, runID string) ([]models.ErrorLog, error)
	// Prune deletes runs and error logs created before cutoff
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type runRepoImpl struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepo {
	return &runRepoImpl{db: db}
}

func (r *runRepoImpl) CreateRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *runRepoImpl) SaveRun(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *runRepoImpl) ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	runs := make([]models.SyncRun, 0)
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *runRepoImpl) CreateErrorLogs(ctx context.Context, logs []models.ErrorLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&logs, 100).Error
}

func (r *runRepoImpl) ListErrorLogs(ctx context.Context, runID string) ([]models.ErrorLog, error) {
	logs := make([]models.ErrorLog, 0)
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *runRepoImpl) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logs := tx.Where("created_at < ?", cutoff).Delete(&models.ErrorLog{})
		if logs.Error != nil {
			return logs.Error
		}
		runs := tx.Where("started_at < ?", cutoff).Delete(&models.SyncRun{})
		if runs.Error != nil {
			return runs.Error
		}
		total = logs.RowsAffected + runs.RowsAffected
		return nil
	})
	return total, err
}
