package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/util"
)

// AnalyticsAdapter reads the GA4 Data API
type AnalyticsAdapter struct {
	client *client
	now    func() time.Time
}

func NewAnalyticsAdapter(opts Options, logger *zap.Logger) *AnalyticsAdapter {
	return &AnalyticsAdapter{
		client: newClient(models.PlatformAnalytics, opts, logger),
		now:    time.Now,
	}
}

func (a *AnalyticsAdapter) Platform() models.Platform { return models.PlatformAnalytics }

var gaMetrics = []string{
	"sessions", "totalUsers", "newUsers", "screenPageViews",
	"bounceRate", "averageSessionDuration", "conversions",
}

type gaName struct {
	Name string `json:"name"`
}

type gaDateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type gaReportRequest struct {
	DateRanges []gaDateRange `json:"dateRanges,omitempty"`
	Dimensions []gaName      `json:"dimensions,omitempty"`
	Metrics    []gaName      `json:"metrics"`
	Limit      int           `json:"limit,omitempty"`
}

type gaValue struct {
	Value string `json:"value" validate:"required"`
}

type gaRow struct {
	DimensionValues []gaValue `json:"dimensionValues" validate:"dive"`
	MetricValues    []gaValue `json:"metricValues" validate:"required,dive"`
}

type gaReport struct {
	Rows     []gaRow `json:"rows" validate:"dive"`
	RowCount int     `json:"rowCount" validate:"gte=0"`
}

func gaNames(names ...string) []gaName {
	out := make([]gaName, len(names))
	for i, n := range names {
		out[i] = gaName{Name: n}
	}
	return out
}

func (a *AnalyticsAdapter) FetchDaily(ctx context.Context, req Request) (models.DailyRows, error) {
	var report gaReport
	err := a.client.do(ctx, call{
		key:    req.ExternalID,
		method: http.MethodPost,
		path:   fmt.Sprintf("/v1beta/properties/%s:runReport", req.ExternalID),
		token:  req.AccessToken,
		body: gaReportRequest{
			DateRanges: []gaDateRange{{StartDate: util.FormatDate(req.Start), EndDate: util.FormatDate(req.End)}},
			Dimensions: gaNames("date"),
			Metrics:    gaNames(gaMetrics...),
			Limit:      100000,
		},
	}, &report)
	if err != nil {
		return nil, err
	}

	rows := make(models.AnalyticsRows, 0, len(report.Rows))
	for i, r := range report.Rows {
		if len(r.DimensionValues) != 1 || len(r.MetricValues) != len(gaMetrics) {
			return nil, invalidResponse(a.Platform(), "row %d has %d dimensions and %d metrics", i, len(r.DimensionValues), len(r.MetricValues))
		}
		day, err := time.ParseInLocation("20060102", r.DimensionValues[0].Value, time.UTC)
		if err != nil {
			return nil, invalidResponse(a.Platform(), "row %d date %q", i, r.DimensionValues[0].Value)
		}
		v, err := parseNumbers(r.MetricValues)
		if err != nil {
			return nil, invalidResponse(a.Platform(), "row %d: %v", i, err)
		}
		rows = append(rows, models.AnalyticsDailyMetric{
			MetricDate:         day,
			Sessions:           int64(v[0]),
			Users:              int64(v[1]),
			NewUsers:           int64(v[2]),
			PageViews:          int64(v[3]),
			BounceRate:         v[4],
			AvgSessionDuration: v[5],
			Conversions:        int64(v[6]),
		})
	}
	return rows, nil
}

// FetchRealtime reads active users over the last 30 minutes, split by country
func (a *AnalyticsAdapter) FetchRealtime(ctx context.Context, externalID, accessToken string) (*RealtimeSnapshot, error) {
	var report gaReport
	err := a.client.do(ctx, call{
		key:    externalID,
		method: http.MethodPost,
		path:   fmt.Sprintf("/v1beta/properties/%s:runRealtimeReport", externalID),
		token:  accessToken,
		body: gaReportRequest{
			Dimensions: gaNames("country"),
			Metrics:    gaNames("activeUsers"),
		},
	}, &report)
	if err != nil {
		return nil, err
	}

	snap := &RealtimeSnapshot{ByCountry: make(map[string]int64), FetchedAt: a.now().UTC()}
	for i, r := range report.Rows {
		if len(r.MetricValues) != 1 {
			return nil, invalidResponse(a.Platform(), "realtime row %d has %d metrics", i, len(r.MetricValues))
		}
		n, err := strconv.ParseInt(r.MetricValues[0].Value, 10, 64)
		if err != nil {
			return nil, invalidResponse(a.Platform(), "realtime row %d: %v", i, err)
		}
		snap.ActiveUsers += n
		if len(r.DimensionValues) > 0 {
			snap.ByCountry[r.DimensionValues[0].Value] += n
		}
	}
	return snap, nil
}

func parseNumbers(values []gaValue) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("metric %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
