package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/pkg/util"
)

type statusKey struct {
	company  string
	platform models.Platform
}

type fakeStatusRepo struct {
	mu      sync.Mutex
	rows     map[statusKey]*models.SyncStatus
	failAll  error
	failList error
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[statusKey]*models.SyncStatus)}
}

func (f *fakeStatusRepo) EnsureRows(_ context.Context, ids []string, platforms []models.Platform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for _, id := range ids {
		for _, p := range platforms {
			k := statusKey{id, p}
			if _, ok := f.rows[k]; !ok {
				f.rows[k] = &models.SyncStatus{CompanyID: id, Platform: p}
			}
		}
	}
	return nil
}

func (f *fakeStatusRepo) row(id string, p models.Platform) *models.SyncStatus {
	k := statusKey{id, p}
	r, ok := f.rows[k]
	if !ok {
		r = &models.SyncStatus{CompanyID: id, Platform: p}
		f.rows[k] = r
	}
	return r
}

func (f *fakeStatusRepo) MarkSuccess(_ context.Context, id string, p models.Platform, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	r := f.row(id, p)
	r.LastSuccessAt = &at
	r.LastAttemptAt = &at
	r.ConsecutiveFailures = 0
	r.LastError = nil
	return nil
}

func (f *fakeStatusRepo) MarkFailure(_ context.Context, id string, p models.Platform, at time.Time, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	r := f.row(id, p)
	r.LastAttemptAt = &at
	r.ConsecutiveFailures++
	r.LastError = &msg
	return nil
}

func (f *fakeStatusRepo) ListAll(context.Context) ([]models.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]models.SyncStatus, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyID != out[j].CompanyID {
			return out[i].CompanyID < out[j].CompanyID
		}
		return out[i].Platform < out[j].Platform
	})
	return out, nil
}

func (f *fakeStatusRepo) get(id string, p models.Platform) models.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.row(id, p)
}

type fakeMappings struct {
	missing map[string]bool
	err     error
}

func (f fakeMappings) Get(_ context.Context, id string, p models.Platform) (*models.PlatformMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.missing[id] {
		return nil, nil
	}
	return &models.PlatformMapping{CompanyID: id, Platform: p, ExternalID: "ext-" + id, CredentialID: 1}, nil
}

func (f fakeMappings) List(context.Context) ([]models.PlatformMapping, error) { return nil, nil }

type fakeTokens struct {
	denied map[string]bool
}

func (f fakeTokens) AccessToken(_ context.Context, m *models.PlatformMapping) (string, error) {
	if f.denied[m.CompanyID] {
		return "", fmt.Errorf("token revoked: %w", provider.ErrAuthRequired)
	}
	return "tok-" + m.CompanyID, nil
}

type fetchCall struct {
	externalID string
	start, end time.Time
}

// fakeAdapter returns one analytics row per day in the window unless fn overrides it
type fakeAdapter struct {
	mu    sync.Mutex
	calls []fetchCall
	fn    func(req provider.Request) (models.DailyRows, error)
}

func (f *fakeAdapter) Platform() models.Platform { return models.PlatformAnalytics }

func (f *fakeAdapter) FetchDaily(_ context.Context, req provider.Request) (models.DailyRows, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{req.ExternalID, req.Start, req.End})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req)
	}
	var rows models.AnalyticsRows
	util.EachDay(req.Start, req.End, func(d time.Time) {
		rows = append(rows, models.AnalyticsDailyMetric{MetricDate: d, Sessions: 1})
	})
	return rows, nil
}

func (f *fakeAdapter) callsFor(externalID string) []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fetchCall
	for _, c := range f.calls {
		if c.externalID == externalID {
			out = append(out, c)
		}
	}
	return out
}

type fakeAdapters map[models.Platform]provider.Adapter

func (f fakeAdapters) Get(p models.Platform) (provider.Adapter, error) {
	a, ok := f[p]
	if !ok {
		return nil, errors.New("no adapter")
	}
	return a, nil
}

// fakeMetrics upserts keyed by (company, platform, day)
type fakeMetrics struct {
	mu   sync.Mutex
	rows map[string]models.DailyPoint
	err  error
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{rows: make(map[string]models.DailyPoint)}
}

func (f *fakeMetrics) Upsert(_ context.Context, rows models.DailyRows) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	company := ""
	if r, ok := rows.(models.AnalyticsRows); ok && len(r) > 0 {
		company = r[0].CompanyID
	}
	for _, p := range rows.Points() {
		f.rows[fmt.Sprintf("%s|%s|%s", company, rows.Platform(), util.FormatDate(p.Date))] = p
	}
	return rows.Len(), nil
}

func (f *fakeMetrics) ListRange(context.Context, string, models.Platform, time.Time, time.Time) (models.DailyRows, error) {
	return nil, nil
}

func (f *fakeMetrics) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// manualClock only moves when told to
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func companies(n int) []models.Company {
	out := make([]models.Company, n)
	for i := range out {
		out[i] = models.Company{ID: fmt.Sprintf("c%d", i+1), Name: fmt.Sprintf("Company %d", i+1)}
	}
	return out
}
