package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/cache"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
	"github.com/ifuryst/agencylens/pkg/util"
)

const (
	DefaultDashboardDays = 30
	MaxDashboardDays     = 365
)

// averaged measures are means over the range rather than sums
var averaged = map[string]bool{
	"bounce_rate":          true,
	"avg_session_duration": true,
	"ctr":                  true,
	"position":             true,
}

// RealtimeSource resolves live-activity capable adapters
type RealtimeSource interface {
	Realtime(platform models.Platform) (provider.RealtimeProvider, bool)
}

type PlatformSummary struct {
	Totals map[string]float64  `json:"totals"`
	Series []models.DailyPoint `json:"series"`
}

type CompanyDashboard struct {
	CompanyID string                              `json:"companyId"`
	Start     string                              `json:"start"`
	End       string                              `json:"end"`
	Platforms map[models.Platform]PlatformSummary `json:"platforms"`
}

type PortfolioCompany struct {
	CompanyID   string                                 `json:"companyId"`
	CompanyName string                                 `json:"companyName"`
	Industry    string                                 `json:"industry"`
	Color       string                                 `json:"color"`
	Totals      map[models.Platform]map[string]float64 `json:"totals"`
}

type Portfolio struct {
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Companies []PortfolioCompany `json:"companies"`
}

// DashboardService serves dashboard reads through the cache
type DashboardService struct {
	companies repository.CompanyRepo
	metrics   repository.MetricRepo
	mappings  repository.MappingRepo
	tokens    syncengine.TokenSource
	realtime  RealtimeSource
	cache     *cache.Service
	platforms []models.Platform
	now       func() time.Time
	logger    *zap.Logger
}

func NewDashboardService(
	companies repository.CompanyRepo,
	metrics repository.MetricRepo,
	mappings repository.MappingRepo,
	tokens syncengine.TokenSource,
	realtime RealtimeSource,
	cacheService *cache.Service,
	platforms []models.Platform,
	now func() time.Time,
	logger *zap.Logger,
) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{
		companies: companies,
		metrics:   metrics,
		mappings:  mappings,
		tokens:    tokens,
		realtime:  realtime,
		cache:     cacheService,
		platforms: platforms,
		now:       now,
		logger:    logger,
	}
}

// dayRange is the inclusive range of days ending today
func (s *DashboardService) dayRange(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = DefaultDashboardDays
	}
	if days > MaxDashboardDays {
		days = MaxDashboardDays
	}
	end := util.StartOfDay(s.now())
	return end.AddDate(0, 0, -(days - 1)), end
}

// Dashboard returns per-platform totals and daily series for one company
func (s *DashboardService) Dashboard(ctx context.Context, companyID string, days int) (*CompanyDashboard, bool, error) {
	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, false, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, false, ErrNotFound
	}

	start, end := s.dayRange(days)
	key := cache.Key{CompanyID: companyID, DataType: models.DataTypeDashboard, Start: &start, End: &end}
	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (*CompanyDashboard, error) {
		out := &CompanyDashboard{
			CompanyID: companyID,
			Start:     util.FormatDate(start),
			End:       util.FormatDate(end),
			Platforms: make(map[models.Platform]PlatformSummary, len(s.platforms)),
		}
		for _, p := range s.platforms {
			rows, err := s.metrics.ListRange(ctx, companyID, p, start, end)
			if err != nil {
				return nil, fmt.Errorf("list %s metrics: %w", p, err)
			}
			points := rows.Points()
			out.Platforms[p] = PlatformSummary{Totals: summarize(points), Series: points}
		}
		return out, nil
	})
}

// Realtime reads live activity for the company's analytics property
func (s *DashboardService) Realtime(ctx context.Context, companyID string) (*provider.RealtimeSnapshot, bool, error) {
	rt, ok := s.realtime.Realtime(models.PlatformAnalytics)
	if !ok {
		return nil, false, fmt.Errorf("%w: realtime analytics is not enabled", ErrNotFound)
	}

	key := cache.Key{CompanyID: companyID, DataType: models.DataTypeRealtime}
	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (*provider.RealtimeSnapshot, error) {
		mapping, err := s.mappings.Get(ctx, companyID, models.PlatformAnalytics)
		if err != nil {
			return nil, fmt.Errorf("get mapping: %w", err)
		}
		if mapping == nil {
			return nil, fmt.Errorf("%w: no analytics property mapped", ErrNotFound)
		}
		token, err := s.tokens.AccessToken(ctx, mapping)
		if err != nil {
			return nil, err
		}
		return rt.FetchRealtime(ctx, mapping.ExternalID, token)
	})
}

// Portfolio returns 30-day totals for every company
func (s *DashboardService) Portfolio(ctx context.Context) (*Portfolio, bool, error) {
	start, end := s.dayRange(DefaultDashboardDays)
	key := cache.Key{CompanyID: models.PortfolioCacheKey, DataType: models.DataTypePortfolio, Start: &start, End: &end}
	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (*Portfolio, error) {
		companies, err := s.companies.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list companies: %w", err)
		}
		out := &Portfolio{
			Start:     util.FormatDate(start),
			End:       util.FormatDate(end),
			Companies: make([]PortfolioCompany, 0, len(companies)),
		}
		for _, c := range companies {
			entry := PortfolioCompany{
				CompanyID:   c.ID,
				CompanyName: c.Name,
				Industry:    c.Industry,
				Color:       c.Color,
				Totals:      make(map[models.Platform]map[string]float64, len(s.platforms)),
			}
			for _, p := range s.platforms {
				rows, err := s.metrics.ListRange(ctx, c.ID, p, start, end)
				if err != nil {
					return nil, fmt.Errorf("list %s metrics for %s: %w", p, c.ID, err)
				}
				entry.Totals[p] = summarize(rows.Points())
			}
			out.Companies = append(out.Companies, entry)
		}
		return out, nil
	})
}

// ClearCache drops every cache entry
func (s *DashboardService) ClearCache(ctx context.Context) (int64, error) {
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("Cache cleared", zap.Int64("deleted", n))
	return n, nil
}

// summarize sums counts and averages rates over the points
func summarize(points []models.DailyPoint) map[string]float64 {
	totals := make(map[string]float64)
	for _, p := range points {
		for k, v := range p.Values {
			totals[k] += v
		}
	}
	if len(points) > 0 {
		for k := range totals {
			if averaged[k] {
				totals[k] /= float64(len(points))
			}
		}
	}
	return totals
}
