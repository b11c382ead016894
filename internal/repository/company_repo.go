package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/models"
)

type CompanyRepo interface {
	List(ctx context.Context) ([]models.Company, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Company, error)
	Get(ctx context.Context, id string) (*models.Company, error)
}

type companyRepoImpl struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepo {
	return &companyRepoImpl{db: db}
}

// List returns companies in creation order so rank ties stay stable between runs
func (r *companyRepoImpl) List(ctx context.Context) ([]models.Company, error) {
	companies := make([]models.Company, 0)
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepoImpl) ListByIDs(ctx context.Context, ids []string) ([]models.Company, error) {
	companies := make([]models.Company, 0, len(ids))
	if len(ids) == 0 {
		return companies, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepoImpl) Get(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}
