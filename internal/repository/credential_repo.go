package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ifuryst/agencylens/internal/models"
)

type CredentialRepo interface {
	// Get returns nil, nil when the credential does not exist
	Get(ctx context.Context, id uint) (*models.OAuthCredential, error)
	List(ctx context.Context) ([]models.OAuthCredential, error)
}

type credentialRepoImpl struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepo {
	return &credentialRepoImpl{db: db}
}

func (r *credentialRepoImpl) Get(ctx context.Context, id uint) (*models.OAuthCredential, error) {
	var cred models.OAuthCredential
	err := r.db.WithContext(ctx).First(&cred, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepoImpl) List(ctx context.Context) ([]models.OAuthCredential, error) {
	creds := make([]models.OAuthCredential, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}
