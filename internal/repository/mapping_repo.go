package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/models"
)

type MappingRepo interface {
	// Get returns nil, nil when the company has no mapping for the platform
	Get(ctx context.Context, companyID string, platform models.Platform) (*models.PlatformMapping, error)
	List(ctx context.Context) ([]models.PlatformMapping, error)
}

type mappingRepoImpl struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) MappingRepo {
	return &mappingRepoImpl{db: db}
}

func (r *mappingRepoImpl) Get(ctx context.Context, companyID string, platform models.Platform) (*models.PlatformMapping, error) {
	var mapping models.PlatformMapping
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND platform = ?", companyID, platform).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *mappingRepoImpl) List(ctx context.Context) ([]models.PlatformMapping, error) {
	mappings := make([]models.PlatformMapping, 0)
	if err := r.db.WithContext(ctx).Order("company_id ASC, platform ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}
