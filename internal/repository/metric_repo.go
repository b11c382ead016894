package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ifuryst/agencylens/internal/models"
)

type MetricRepo interface {
	// Upsert writes normalized rows, overwriting any row with the same
	// (company_id, metric_date). Returns the number of rows written.
	Upsert(ctx context.Context, rows models.DailyRows) (int, error)
	// ListRange returns one company's rows for [start, end], ordered by date
	ListRange(ctx context.Context, companyID string, platform models.Platform, start, end time.Time) (models.DailyRows, error)
}

type metricRepoImpl struct {
	db *gorm.DB
}

func NewMetricRepository(db *gorm.DB) MetricRepo {
	return &metricRepoImpl{db: db}
}

const upsertBatchSize = 500

var metricKey = []clause.Column{{Name: "company_id"}, {Name: "metric_date"}}

var metricColumns = map[models.Platform][]string{
	models.PlatformAnalytics: {
		"sessions", "users", "new_users", "page_views",
		"bounce_rate", "avg_session_duration", "conversions", "updated_at",
	},
	models.PlatformSearchConsole: {
		"clicks", "impressions", "ctr", "position", "updated_at",
	},
	models.PlatformYouTube: {
		"views", "watch_time_minutes", "subscribers_gained", "subscribers_lost",
		"likes", "comments", "shares", "updated_at",
	},
	models.PlatformLinkedIn: {
		"impressions", "unique_impressions", "clicks", "reactions",
		"comments", "shares", "followers_gained", "page_views", "updated_at",
	},
}

func (r *metricRepoImpl) Upsert(ctx context.Context, rows models.DailyRows) (int, error) {
	if rows == nil || rows.Len() == 0 {
		return 0, nil
	}

	var value interface{}
	switch v := rows.(type) {
	case models.AnalyticsRows:
		batch := []models.AnalyticsDailyMetric(v)
		value = &batch
	case models.SearchConsoleRows:
		batch := []models.SearchConsoleDailyMetric(v)
		value = &batch
	case models.YouTubeRows:
		batch := []models.YouTubeDailyMetric(v)
		value = &batch
	case models.LinkedInRows:
		batch := []models.LinkedInDailyMetric(v)
		value = &batch
	default:
		return 0, fmt.Errorf("unsupported row type %T", rows)
	}

	err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   metricKey,
		DoUpdates: clause.AssignmentColumns(metricColumns[rows.Platform()]),
	}).CreateInBatches(value, upsertBatchSize).Error
	if err != nil {
		return 0, err
	}
	return rows.Len(), nil
}

func (r *metricRepoImpl) ListRange(ctx context.Context, companyID string, platform models.Platform, start, end time.Time) (models.DailyRows, error) {
	q := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("metric_date >= ? AND metric_date <= ?", start, end).
		Order("metric_date ASC")

	var rows models.DailyRows
	switch platform {
	case models.PlatformAnalytics:
		out := make(models.AnalyticsRows, 0)
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		rows = out
	case models.PlatformSearchConsole:
		out := make(models.SearchConsoleRows, 0)
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		rows = out
	case models.PlatformYouTube:
		out := make(models.YouTubeRows, 0)
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		rows = out
	case models.PlatformLinkedIn:
		out := make(models.LinkedInRows, 0)
		if err := q.Find(&out).Error; err != nil {
			return nil, err
		}
		rows = out
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	return rows, nil
}
