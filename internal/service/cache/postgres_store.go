package cache

import (
	"context"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
)

// PostgresStore keeps entries in the analytics_cache table. Put deletes and
// inserts inside one transaction.
type PostgresStore struct {
	repo repository.CacheEntryRepo
}

func NewPostgresStore(repo repository.CacheEntryRepo) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (s *PostgresStore) Get(ctx context.Context, companyID, dataType string) (*Entry, error) {
	row, err := s.repo.Find(ctx, companyID, dataType)
	if err != nil || row == nil {
		return nil, err
	}
	return &Entry{
		CompanyID: derefString(row.CompanyID),
		DataType:  row.DataType,
		Data:      []byte(row.Data),
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry *Entry, _ time.Duration) error {
	var companyID *string
	if entry.CompanyID != "" {
		companyID = &entry.CompanyID
	}
	return s.repo.Replace(ctx, &models.CacheEntry{
		CompanyID: companyID,
		DataType:  entry.DataType,
		Data:      entry.Data,
		StartDate: entry.StartDate,
		EndDate:   entry.EndDate,
		CreatedAt: entry.CreatedAt,
	})
}

func (s *PostgresStore) Delete(ctx context.Context, companyID, dataType string) error {
	return s.repo.Delete(ctx, companyID, dataType)
}

func (s *PostgresStore) Clear(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

func (s *PostgresStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
