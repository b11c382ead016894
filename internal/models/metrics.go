package models

import (
	"sort"
	"time"
)

// AnalyticsDailyMetric is one day of Google Analytics traffic for a company
type AnalyticsDailyMetric struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	CompanyID          string    `gorm:"type:uuid;not null;uniqueIndex:idx_ga_company_date,priority:1" json:"company_id"`
	MetricDate         time.Time `gorm:"type:date;not null;uniqueIndex:idx_ga_company_date,priority:2" json:"metric_date"`
	Sessions           int64     `gorm:"not null;default:0" json:"sessions"`
	Users              int64     `gorm:"not null;default:0" json:"users"`
	NewUsers           int64     `gorm:"not null;default:0" json:"new_users"`
	PageViews          int64     `gorm:"not null;default:0" json:"page_views"`
	BounceRate         float64   `gorm:"not null;default:0" json:"bounce_rate"`
	AvgSessionDuration float64   `gorm:"not null;default:0" json:"avg_session_duration"`
	Conversions        int64     `gorm:"not null;default:0" json:"conversions"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"-"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AnalyticsDailyMetric) TableName() string { return "ga_daily_metrics" }

// SearchConsoleDailyMetric is one day of organic search performance
type SearchConsoleDailyMetric struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	CompanyID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_gsc_company_date,priority:1" json:"company_id"`
	MetricDate  time.Time `gorm:"type:date;not null;uniqueIndex:idx_gsc_company_date,priority:2" json:"metric_date"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	Impressions int64     `gorm:"not null;default:0" json:"impressions"`
	CTR         float64   `gorm:"column:ctr;not null;default:0" json:"ctr"`
	Position    float64   `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SearchConsoleDailyMetric) TableName() string { return "gsc_daily_metrics" }

// YouTubeDailyMetric is one day of channel analytics
type YouTubeDailyMetric struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	CompanyID         string    `gorm:"type:uuid;not null;uniqueIndex:idx_yt_company_date,priority:1" json:"company_id"`
	MetricDate        time.Time `gorm:"type:date;not null;uniqueIndex:idx_yt_company_date,priority:2" json:"metric_date"`
	Views             int64     `gorm:"not null;default:0" json:"views"`
	WatchTimeMinutes  float64   `gorm:"not null;default:0" json:"watch_time_minutes"`
	SubscribersGained int64     `gorm:"not null;default:0" json:"subscribers_gained"`
	SubscribersLost   int64     `gorm:"not null;default:0" json:"subscribers_lost"`
	Likes             int64     `gorm:"not null;default:0" json:"likes"`
	Comments          int64     `gorm:"not null;default:0" json:"comments"`
	Shares            int64     `gorm:"not null;default:0" json:"shares"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"-"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (YouTubeDailyMetric) TableName() string { return "youtube_daily_metrics" }

// LinkedInDailyMetric is one day of organization page statistics
type LinkedInDailyMetric struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	CompanyID         string    `gorm:"type:uuid;not null;uniqueIndex:idx_li_company_date,priority:1" json:"company_id"`
	MetricDate        time.Time `gorm:"type:date;not null;uniqueIndex:idx_li_company_date,priority:2" json:"metric_date"`
	Impressions       int64     `gorm:"not null;default:0" json:"impressions"`
	UniqueImpressions int64     `gorm:"not null;default:0" json:"unique_impressions"`
	Clicks            int64     `gorm:"not null;default:0" json:"clicks"`
	Reactions         int64     `gorm:"not null;default:0" json:"reactions"`
	Comments          int64     `gorm:"not null;default:0" json:"comments"`
	Shares            int64     `gorm:"not null;default:0" json:"shares"`
	FollowersGained   int64     `gorm:"not null;default:0" json:"followers_gained"`
	PageViews         int64     `gorm:"not null;default:0" json:"page_views"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"-"`

	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (LinkedInDailyMetric) TableName() string { return "linkedin_daily_metrics" }

// DailyPoint is a platform-neutral view of one fact row
type DailyPoint struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// DailyRows is the closed set of row batches an adapter can return.
// Only the slice types in this file implement it.
type DailyRows interface {
	Platform() Platform
	Len() int
	Points() []DailyPoint
	// Normalize stamps companyID, truncates dates to UTC midnight and keeps the
	// last row for each date, ordered by date.
	Normalize(companyID string) DailyRows

	sealed()
}

type (
	AnalyticsRows     []AnalyticsDailyMetric
	SearchConsoleRows []SearchConsoleDailyMetric
	YouTubeRows       []YouTubeDailyMetric
	LinkedInRows      []LinkedInDailyMetric
)

// EmptyRows returns a zero-length batch for the platform
func EmptyRows(p Platform) DailyRows {
	switch p {
	case PlatformAnalytics:
		return AnalyticsRows{}
	case PlatformSearchConsole:
		return SearchConsoleRows{}
	case PlatformYouTube:
		return YouTubeRows{}
	case PlatformLinkedIn:
		return LinkedInRows{}
	}
	return nil
}

func (AnalyticsRows) Platform() Platform     { return PlatformAnalytics }
func (SearchConsoleRows) Platform() Platform { return PlatformSearchConsole }
func (YouTubeRows) Platform() Platform       { return PlatformYouTube }
func (LinkedInRows) Platform() Platform      { return PlatformLinkedIn }

func (r AnalyticsRows) Len() int     { return len(r) }
func (r SearchConsoleRows) Len() int { return len(r) }
func (r YouTubeRows) Len() int       { return len(r) }
func (r LinkedInRows) Len() int      { return len(r) }

func (AnalyticsRows) sealed()     {}
func (SearchConsoleRows) sealed() {}
func (YouTubeRows) sealed()       {}
func (LinkedInRows) sealed()      {}

func (r AnalyticsRows) Points() []DailyPoint {
	out := make([]DailyPoint, len(r))
	for i, m := range r {
		out[i] = DailyPoint{Date: m.MetricDate, Values: map[string]float64{
			"sessions":             float64(m.Sessions),
			"users":                float64(m.Users),
			"new_users":            float64(m.NewUsers),
			"page_views":           float64(m.PageViews),
			"bounce_rate":          m.BounceRate,
			"avg_session_duration": m.AvgSessionDuration,
			"conversions":          float64(m.Conversions),
		}}
	}
	return out
}

func (r SearchConsoleRows) Points() []DailyPoint {
	out := make([]DailyPoint, len(r))
	for i, m := range r {
		out[i] = DailyPoint{Date: m.MetricDate, Values: map[string]float64{
			"clicks":      float64(m.Clicks),
			"impressions": float64(m.Impressions),
			"ctr":         m.CTR,
			"position":    m.Position,
		}}
	}
	return out
}

func (r YouTubeRows) Points() []DailyPoint {
	out := make([]DailyPoint, len(r))
	for i, m := range r {
		out[i] = DailyPoint{Date: m.MetricDate, Values: map[string]float64{
			"views":              float64(m.Views),
			"watch_time_minutes": m.WatchTimeMinutes,
			"subscribers_gained": float64(m.SubscribersGained),
			"subscribers_lost":   float64(m.SubscribersLost),
			"likes":              float64(m.Likes),
			"comments":           float64(m.Comments),
			"shares":             float64(m.Shares),
		}}
	}
	return out
}

func (r LinkedInRows) Points() []DailyPoint {
	out := make([]DailyPoint, len(r))
	for i, m := range r {
		out[i] = DailyPoint{Date: m.MetricDate, Values: map[string]float64{
			"impressions":        float64(m.Impressions),
			"unique_impressions": float64(m.UniqueImpressions),
			"clicks":             float64(m.Clicks),
			"reactions":          float64(m.Reactions),
			"comments":           float64(m.Comments),
			"shares":             float64(m.Shares),
			"followers_gained":   float64(m.FollowersGained),
			"page_views":         float64(m.PageViews),
		}}
	}
	return out
}

func (r AnalyticsRows) Normalize(companyID string) DailyRows {
	return AnalyticsRows(normalize(r, func(m *AnalyticsDailyMetric) *time.Time {
		m.CompanyID = companyID
		return &m.MetricDate
	}))
}

func (r SearchConsoleRows) Normalize(companyID string) DailyRows {
	return SearchConsoleRows(normalize(r, func(m *SearchConsoleDailyMetric) *time.Time {
		m.CompanyID = companyID
		return &m.MetricDate
	}))
}

func (r YouTubeRows) Normalize(companyID string) DailyRows {
	return YouTubeRows(normalize(r, func(m *YouTubeDailyMetric) *time.Time {
		m.CompanyID = companyID
		return &m.MetricDate
	}))
}

func (r LinkedInRows) Normalize(companyID string) DailyRows {
	return LinkedInRows(normalize(r, func(m *LinkedInDailyMetric) *time.Time {
		m.CompanyID = companyID
		return &m.MetricDate
	}))
}

// normalize copies rows, lets prep stamp each one and expose its date, then keeps
// the last row per day. A single INSERT ... ON CONFLICT cannot touch a key twice.
func normalize[T any](rows []T, prep func(*T) *time.Time) []T {
	byDay := make(map[time.Time]T, len(rows))
	for _, row := range rows {
		d := prep(&row)
		t := d.UTC()
		*d = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		byDay[*d] = row
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]T, 0, len(days))
	for _, d := range days {
		out = append(out, byDay[d])
	}
	return out
}
