package provider

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/pkg/util"
)

const linkedInVersion = "202401"

// LinkedInAdapter reads organization share, follower and page statistics
type LinkedInAdapter struct {
	client *client
}

func NewLinkedInAdapter(opts Options, logger *zap.Logger) *LinkedInAdapter {
	return &LinkedInAdapter{client: newClient(models.PlatformLinkedIn, opts, logger)}
}

func (a *LinkedInAdapter) Platform() models.Platform { return models.PlatformLinkedIn }

type liTimeRange struct {
	Start int64 `json:"start" validate:"gt=0"`
	End   int64 `json:"end" validate:"gtfield=Start"`
}

type liShareElement struct {
	TimeRange liTimeRange `json:"timeRange"`
	Stats     struct {
		ImpressionCount        int64 `json:"impressionCount" validate:"gte=0"`
		UniqueImpressionsCount int64 `json:"uniqueImpressionsCount" validate:"gte=0"`
		ClickCount             int64 `json:"clickCount" validate:"gte=0"`
		LikeCount              int64 `json:"likeCount" validate:"gte=0"`
		CommentCount           int64 `json:"commentCount" validate:"gte=0"`
		ShareCount             int64 `json:"shareCount" validate:"gte=0"`
	} `json:"totalShareStatistics"`
}

type liFollowerElement struct {
	TimeRange liTimeRange `json:"timeRange"`
	Gains     struct {
		Organic int64 `json:"organicFollowerGain"`
		Paid    int64 `json:"paidFollowerGain"`
	} `json:"followerGains"`
}

type liPageElement struct {
	TimeRange liTimeRange `json:"timeRange"`
	Stats     struct {
		Views struct {
			All struct {
				PageViews int64 `json:"pageViews" validate:"gte=0"`
			} `json:"allPageViews"`
		} `json:"views"`
	} `json:"totalPageStatistics"`
}

type liShareResponse struct {
	Elements []liShareElement `json:"elements" validate:"dive"`
}

type liFollowerResponse struct {
	Elements []liFollowerElement `json:"elements" validate:"dive"`
}

type liPageResponse struct {
	Elements []liPageElement `json:"elements" validate:"dive"`
}

func (a *LinkedInAdapter) FetchDaily(ctx context.Context, req Request) (models.DailyRows, error) {
	org := "urn:li:organization:" + req.ExternalID
	// the API's range end is exclusive
	start := util.StartOfDay(req.Start).UnixMilli()
	end := util.StartOfDay(req.End).AddDate(0, 0, 1).UnixMilli()

	interval := func(entityParam string) map[string]string {
		return map[string]string{
			"q":                                 entityParam,
			entityParam:                         org,
			"timeIntervals.timeGranularityType": "DAY",
			"timeIntervals.timeRange.start":     strconv.FormatInt(start, 10),
			"timeIntervals.timeRange.end":       strconv.FormatInt(end, 10),
		}
	}
	headers := map[string]string{
		"LinkedIn-Version":          linkedInVersion,
		"X-Restli-Protocol-Version": "2.0.0",
	}

	var shares liShareResponse
	if err := a.client.do(ctx, call{
		key: req.ExternalID, method: http.MethodGet, path: "/rest/organizationalEntityShareStatistics",
		token: req.AccessToken, query: interval("organizationalEntity"), headers: headers,
	}, &shares); err != nil {
		return nil, err
	}

	var followers liFollowerResponse
	if err := a.client.do(ctx, call{
		key: req.ExternalID, method: http.MethodGet, path: "/rest/organizationalEntityFollowerStatistics",
		token: req.AccessToken, query: interval("organizationalEntity"), headers: headers,
	}, &followers); err != nil {
		return nil, err
	}

	var pages liPageResponse
	if err := a.client.do(ctx, call{
		key: req.ExternalID, method: http.MethodGet, path: "/rest/organizationPageStatistics",
		token: req.AccessToken, query: interval("organization"), headers: headers,
	}, &pages); err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*models.LinkedInDailyMetric)
	var order []time.Time
	row := func(tr liTimeRange) *models.LinkedInDailyMetric {
		day := util.StartOfDay(time.UnixMilli(tr.Start))
		m, ok := byDay[day]
		if !ok {
			m = &models.LinkedInDailyMetric{MetricDate: day}
			byDay[day] = m
			order = append(order, day)
		}
		return m
	}

	for _, e := range shares.Elements {
		m := row(e.TimeRange)
		m.Impressions = e.Stats.ImpressionCount
		m.UniqueImpressions = e.Stats.UniqueImpressionsCount
		m.Clicks = e.Stats.ClickCount
		m.Reactions = e.Stats.LikeCount
		m.Comments = e.Stats.CommentCount
		m.Shares = e.Stats.ShareCount
	}
	for _, e := range followers.Elements {
		row(e.TimeRange).FollowersGained = e.Gains.Organic + e.Gains.Paid
	}
	for _, e := range pages.Elements {
		row(e.TimeRange).PageViews = e.Stats.Views.All.PageViews
	}

	rows := make(models.LinkedInRows, 0, len(order))
	for _, day := range order {
		rows = append(rows, *byDay[day])
	}
	return rows, nil
}
