package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/service/cache"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
)

var errDown = errors.New("database unavailable")

type fakeCompanies struct {
	companies []models.Company
	err       error
	byIDs     []string
}

func (f *fakeCompanies) List(context.Context) ([]models.Company, error) {
	return f.companies, f.err
}

func (f *fakeCompanies) ListByIDs(_ context.Context, ids []string) ([]models.Company, error) {
	f.byIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Company
	for _, c := range f.companies {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCompanies) Get(_ context.Context, id string) (*models.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.companies {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

type fakeRuns struct {
	mu        sync.Mutex
	runs      map[string]models.SyncRun
	logs      []models.ErrorLog
	createErr error
	pruned    time.Time
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[string]models.SyncRun)}
}

func (f *fakeRuns) CreateRun(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) SaveRun(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SyncRun, 0, len(f.runs))
	for _, r := range f.runs {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRuns) CreateErrorLogs(_ context.Context, logs []models.ErrorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, logs...)
	return nil
}

func (f *fakeRuns) ListErrorLogs(_ context.Context, runID string) ([]models.ErrorLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ErrorLog
	for _, l := range f.logs {
		if l.RunID != nil && *l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRuns) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = cutoff
	return 2, nil
}

type fakeMembers struct {
	members []models.CompanyMember
	err     error
}

func (f *fakeMembers) ListByUser(_ context.Context, userID string) ([]models.CompanyMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.CompanyMember
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeStatuses struct {
	rows []models.SyncStatus
}

func (f *fakeStatuses) EnsureRows(context.Context, []string, []models.Platform) error { return nil }
func (f *fakeStatuses) MarkSuccess(context.Context, string, models.Platform, time.Time) error {
	return nil
}
func (f *fakeStatuses) MarkFailure(context.Context, string, models.Platform, time.Time, string) error {
	return nil
}
func (f *fakeStatuses) ListAll(context.Context) ([]models.SyncStatus, error) { return f.rows, nil }

type fakeMappings struct {
	mappings []models.PlatformMapping
	err      error
}

func (f *fakeMappings) Get(_ context.Context, companyID string, platform models.Platform) (*models.PlatformMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.mappings {
		if m.CompanyID == companyID && m.Platform == platform {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeMappings) List(context.Context) ([]models.PlatformMapping, error) {
	return f.mappings, f.err
}

type fakeCredentials struct {
	creds []models.OAuthCredential
}

func (f *fakeCredentials) Get(_ context.Context, id uint) (*models.OAuthCredential, error) {
	for _, c := range f.creds {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCredentials) List(context.Context) ([]models.OAuthCredential, error) {
	return f.creds, nil
}

// fakeMetrics serves one analytics row per day in range and counts reads
type fakeMetrics struct {
	mu    sync.Mutex
	reads int
}

func (f *fakeMetrics) Upsert(_ context.Context, rows models.DailyRows) (int, error) {
	return rows.Len(), nil
}

func (f *fakeMetrics) ListRange(_ context.Context, companyID string, platform models.Platform, start, end time.Time) (models.DailyRows, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	if platform != models.PlatformAnalytics {
		return models.EmptyRows(platform), nil
	}
	var rows models.AnalyticsRows
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rows = append(rows, models.AnalyticsDailyMetric{
			CompanyID: companyID, MetricDate: d, Sessions: 10, BounceRate: 0.5,
		})
	}
	return rows, nil
}

// memStore is an in-memory cache.Store
type memStore struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]cache.Entry)}
}

func (m *memStore) Get(_ context.Context, companyID, dataType string) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[companyID+"|"+dataType]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memStore) Put(_ context.Context, e *cache.Entry, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.CompanyID+"|"+e.DataType] = *e
	return nil
}

func (m *memStore) Delete(_ context.Context, companyID, dataType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, companyID+"|"+dataType)
	return nil
}

func (m *memStore) Clear(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries))
	m.entries = make(map[string]cache.Entry)
	return n, nil
}

func (m *memStore) EvictOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// fakeRunner returns a canned result and remembers what it was asked
type fakeRunner struct {
	result    syncengine.RunResult
	err       error
	companies []models.Company
	opts      syncengine.RunOptions
	ctxErr    error
	entered   chan struct{}
	block     chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, companies []models.Company, opts syncengine.RunOptions) (syncengine.RunResult, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	f.companies = companies
	f.opts = opts
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
}
