package provider

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/util"
)

// YouTubeAdapter reads the YouTube Analytics reports API
type YouTubeAdapter struct {
	client *client
}

func NewYouTubeAdapter(opts Options, logger *zap.Logger) *YouTubeAdapter {
	return &YouTubeAdapter{client: newClient(models.PlatformYouTube, opts, logger)}
}

func (a *YouTubeAdapter) Platform() models.Platform { return models.PlatformYouTube }

var ytMetrics = []string{
	"views", "estimatedMinutesWatched", "subscribersGained", "subscribersLost",
	"likes", "comments", "shares",
}

type ytColumn struct {
	Name string `json:"name" validate:"required"`
}

type ytReport struct {
	ColumnHeaders []ytColumn      `json:"columnHeaders" validate:"required,min=2,dive"`
	Rows          [][]interface{} `json:"rows"`
}

func (a *YouTubeAdapter) FetchDaily(ctx context.Context, req Request) (models.DailyRows, error) {
	var report ytReport
	err := a.client.do(ctx, call{
		key:    req.ExternalID,
		method: http.MethodGet,
		path:   "/v2/reports",
		token:  req.AccessToken,
		query: map[string]string{
			"ids":        "channel==" + req.ExternalID,
			"startDate":  util.FormatDate(req.Start),
			"endDate":    util.FormatDate(req.End),
			"metrics":    strings.Join(ytMetrics, ","),
			"dimensions": "day",
			"sort":       "day",
		},
	}, &report)
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(report.ColumnHeaders))
	for i, h := range report.ColumnHeaders {
		col[h.Name] = i
	}
	for _, name := range append([]string{"day"}, ytMetrics...) {
		if _, ok := col[name]; !ok {
			return nil, invalidResponse(a.Platform(), "missing column %q", name)
		}
	}

	rows := make(models.YouTubeRows, 0, len(report.Rows))
	for i, r := range report.Rows {
		if len(r) != len(report.ColumnHeaders) {
			return nil, invalidResponse(a.Platform(), "row %d has %d cells, want %d", i, len(r), len(report.ColumnHeaders))
		}
		dayStr, ok := r[col["day"]].(string)
		if !ok {
			return nil, invalidResponse(a.Platform(), "row %d day is %T", i, r[col["day"]])
		}
		day, err := util.ParseDate(dayStr)
		if err != nil {
			return nil, invalidResponse(a.Platform(), "row %d date %q", i, dayStr)
		}

		num := func(name string) (float64, error) {
			f, ok := r[col[name]].(float64)
			if !ok {
				return 0, invalidResponse(a.Platform(), "row %d %s is %T", i, name, r[col[name]])
			}
			return f, nil
		}
		var v [7]float64
		for j, name := range ytMetrics {
			if v[j], err = num(name); err != nil {
				return nil, err
			}
		}

		rows = append(rows, models.YouTubeDailyMetric{
			MetricDate:        day,
			Views:             int64(v[0]),
			WatchTimeMinutes:  v[1],
			SubscribersGained: int64(v[2]),
			SubscribersLost:   int64(v[3]),
			Likes:             int64(v[4]),
			Comments:          int64(v[5]),
			Shares:            int64(v[6]),
		})
	}
	return rows, nil
}
