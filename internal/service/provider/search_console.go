package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/util"
)

// SearchConsoleAdapter reads the Search Analytics query API
type SearchConsoleAdapter struct {
	client *client
}

func NewSearchConsoleAdapter(opts Options, logger *zap.Logger) *SearchConsoleAdapter {
	return &SearchConsoleAdapter{client: newClient(models.PlatformSearchConsole, opts, logger)}
}

func (a *SearchConsoleAdapter) Platform() models.Platform { return models.PlatformSearchConsole }

type gscQuery struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"rowLimit"`
	DataState  string   `json:"dataState"`
}

type gscRow struct {
	Keys        []string `json:"keys" validate:"len=1,dive,required"`
	Clicks      float64  `json:"clicks" validate:"gte=0"`
	Impressions float64  `json:"impressions" validate:"gte=0"`
	CTR         float64  `json:"ctr" validate:"gte=0,lte=1"`
	Position    float64  `json:"position" validate:"gte=0"`
}

type gscResponse struct {
	Rows []gscRow `json:"rows" validate:"dive"`
}

func (a *SearchConsoleAdapter) FetchDaily(ctx context.Context, req Request) (models.DailyRows, error) {
	var resp gscResponse
	err := a.client.do(ctx, call{
		key:    req.ExternalID,
		method: http.MethodPost,
		path:   fmt.Sprintf("/webmasters/v3/sites/%s/searchAnalytics/query", url.PathEscape(req.ExternalID)),
		token:  req.AccessToken,
		body: gscQuery{
			StartDate:  util.FormatDate(req.Start),
			EndDate:    util.FormatDate(req.End),
			Dimensions: []string{"date"},
			RowLimit:   25000,
			DataState:  "all",
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	rows := make(models.SearchConsoleRows, 0, len(resp.Rows))
	for i, r := range resp.Rows {
		day, err := util.ParseDate(r.Keys[0])
		if err != nil {
			return nil, invalidResponse(a.Platform(), "row %d date %q", i, r.Keys[0])
		}
		rows = append(rows, models.SearchConsoleDailyMetric{
			MetricDate:  day,
			Clicks:      int64(r.Clicks),
			Impressions: int64(r.Impressions),
			CTR:         r.CTR,
			Position:    r.Position,
		})
	}
	return rows, nil
}
