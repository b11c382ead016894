package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/agencylens/internal/models"
)

// CacheEntryRepo addresses entries by (company id, data type). An empty
// company id selects the cross-company entries.
type CacheEntryRepo interface {
	// Find returns nil, nil on a miss
	Find(ctx context.Context, companyID, dataType string) (*models.CacheEntry, error)
	// Replace deletes any entry for the key and inserts entry in one transaction
	Replace(ctx context.Context, entry *models.CacheEntry) error
	Delete(ctx context.Context, companyID, dataType string) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type cacheEntryRepoImpl struct {
	db *gorm.DB
}

func NewCacheEntryRepository(db *gorm.DB) CacheEntryRepo {
	return &cacheEntryRepoImpl{db: db}
}

func whereKey(db *gorm.DB, companyID, dataType string) *gorm.DB {
	if companyID == "" {
		return db.Where("company_id IS NULL AND data_type = ?", dataType)
	}
	return db.Where("company_id = ? AND data_type = ?", companyID, dataType)
}

func (r *cacheEntryRepoImpl) Find(ctx context.Context, companyID, dataType string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := whereKey(r.db.WithContext(ctx), companyID, dataType).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *cacheEntryRepoImpl) Replace(ctx context.Context, entry *models.CacheEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyID := ""
		if entry.CompanyID != nil {
			companyID = *entry.CompanyID
		}
		if err := whereKey(tx, companyID, entry.DataType).Delete(&models.CacheEntry{}).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(entry).Error
	})
}

func (r *cacheEntryRepoImpl) Delete(ctx context.Context, companyID, dataType string) error {
	return whereKey(r.db.WithContext(ctx), companyID, dataType).
		Delete(&models.CacheEntry{}).Error
}

func (r *cacheEntryRepoImpl) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (r *cacheEntryRepoImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
