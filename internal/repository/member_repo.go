package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/models"
)

type MemberRepo interface {
	// ListByUser returns every membership the user holds
	ListByUser(ctx context.Context, userID string) ([]models.CompanyMember, error)
}

type memberRepoImpl struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepo {
	return &memberRepoImpl{db: db}
}

func (r *memberRepoImpl) ListByUser(ctx context.Context, userID string) ([]models.CompanyMember, error) {
	members := make([]models.CompanyMember, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("company_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
