package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/security"
	"github.com/ifuryst/agencylens/internal/service"
	"github.com/ifuryst/agencylens/internal/service/provider"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSyncer struct {
	secret string
	err    error
	got    *service.SyncRequest
}

func (f *fakeSyncer) VerifySecret(secret string) error {
	if secret != f.secret {
		return service.ErrUnauthorizedSecret
	}
	return nil
}

func (f *fakeSyncer) Run(_ context.Context, req service.SyncRequest) (*service.SyncResponse, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	return &service.SyncResponse{
		Message:   "Sync completed for 1 companies",
		Timestamp: time.Now(),
		RunID:     "run-1",
		Results: []syncengine.CompanyResult{{
			CompanyID: "c1", Success: true,
			Platforms: []syncengine.TaskResult{{CompanyID: "c1", Platform: models.PlatformAnalytics, Outcome: syncengine.OutcomeSuccess, Rows: 3}},
		}},
		Performance: syncengine.Performance{BatchesProcessed: 1, SuccessCount: 1},
	}, nil
}

type fakeTriggerer struct {
	calls [][]string
}

func (f *fakeTriggerer) Trigger(ids []string, _ bool) service.Dispatch {
	f.calls = append(f.calls, ids)
	return service.Dispatch{Status: "started", Message: "Sync started in background", CompanyIDs: ids}
}

// fakeAccess: user "owner" manages c1, "viewer" views c1
type fakeAccess struct{}

func (fakeAccess) ManageTargets(_ context.Context, userID string, admin bool, ids []string) ([]string, error) {
	if admin {
		return ids, nil
	}
	if userID != "owner" {
		return nil, service.ErrForbidden
	}
	if len(ids) == 0 {
		return []string{"c1"}, nil
	}
	for _, id := range ids {
		if id != "c1" {
			return nil, fmt.Errorf("%w: %s", service.ErrForbidden, id)
		}
	}
	return ids, nil
}

func (fakeAccess) CanView(_ context.Context, userID string, admin bool, companyID string) error {
	if admin || ((userID == "owner" || userID == "viewer") && companyID == "c1") {
		return nil
	}
	return service.ErrForbidden
}

type fakeStatus struct{}

func (fakeStatus) Report(context.Context) (*service.StatusReport, error) {
	return &service.StatusReport{
		Statuses:    []service.PairStatus{{CompanyID: "c1", Platform: models.PlatformYouTube, ConsecutiveFailures: 2}},
		TokenHealth: []service.TokenHealth{{CredentialID: 1, IsExpired: true}},
	}, nil
}

type fakeRuns struct{ limit int }

func (f *fakeRuns) RecentRuns(_ context.Context, limit int) ([]models.SyncRun, error) {
	f.limit = limit
	return []models.SyncRun{{ID: "run-1", Trigger: "cron"}}, nil
}

type fakeDashboard struct {
	realtimeErr error
	cleared     int64
}

func (f *fakeDashboard) Dashboard(_ context.Context, companyID string, days int) (*service.CompanyDashboard, bool, error) {
	return &service.CompanyDashboard{CompanyID: companyID, Start: fmt.Sprint(days)}, true, nil
}

func (f *fakeDashboard) Realtime(context.Context, string) (*provider.RealtimeSnapshot, bool, error) {
	if f.realtimeErr != nil {
		return nil, false, f.realtimeErr
	}
	return &provider.RealtimeSnapshot{ActiveUsers: 5}, false, nil
}

func (f *fakeDashboard) Portfolio(context.Context) (*service.Portfolio, bool, error) {
	return &service.Portfolio{}, false, nil
}

func (f *fakeDashboard) ClearCache(context.Context) (int64, error) {
	return f.cleared, nil
}

type harness struct {
	router  *gin.Engine
	sync    *fakeSyncer
	trigger *fakeTriggerer
	runs    *fakeRuns
	dash    *fakeDashboard
	jwt     *security.JWT
}

func newHarness() *harness {
	h := &harness{
		sync:    &fakeSyncer{secret: "cron-secret"},
		trigger: &fakeTriggerer{},
		runs:    &fakeRuns{},
		dash:    &fakeDashboard{cleared: 4},
		jwt:     security.NewJWT("jwt-secret", "agencylens", time.Hour),
	}
	h.router = NewRouter(&Handlers{
		Sync:       h.sync,
		Dispatcher: h.trigger,
		Access:     fakeAccess{},
		Status:     fakeStatus{},
		Runs:       h.runs,
		Dashboard:  h.dash,
		Logger:     zap.NewNop(),
	}, h.jwt)
	return h
}

func (h *harness) do(t *testing.T, method, path, user string, roles []string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		token, err := h.jwt.GenerateToken(user, roles)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func TestCronSync(t *testing.T) {
	h := newHarness()

	w := h.do(t, http.MethodGet, "/api/cron/sync-analytics?secret=wrong", "", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret status = %d", w.Code)
	}
	if h.sync.got != nil {
		t.Fatal("run must not start without the secret")
	}

	w = h.do(t, http.MethodGet, "/api/cron/sync-analytics?secret=cron-secret&companyIds=c1,c2&force=true", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	for _, key := range []string{"message", "timestamp", "results", "performance"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	perf := body["performance"].(map[string]interface{})
	for _, key := range []string{"startTime", "endTime", "duration", "batchesProcessed", "successCount", "errorCount"} {
		if _, ok := perf[key]; !ok {
			t.Errorf("performance missing %q", key)
		}
	}
	got := h.sync.got
	if !got.Force || len(got.CompanyIDs) != 2 || got.Trigger != service.TriggerHTTP {
		t.Errorf("request = %+v", got)
	}
}

func TestCronSyncErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrRunInProgress, http.StatusConflict},
		{errors.New("list companies: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newHarness()
			h.sync.err = tt.err
			w := h.do(t, http.MethodGet, "/api/cron/sync-analytics?secret=cron-secret", "", nil, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestTriggerSync(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		roles   []string
		body    string
		want    int
		targets []string
	}{
		{"anonymous", "", nil, "", http.StatusUnauthorized, nil},
		{"viewer", "viewer", nil, `{"companyIds":["c1"]}`, http.StatusForbidden, nil},
		{"owner of other company", "owner", nil, `{"companyIds":["c1","c2"]}`, http.StatusForbidden, nil},
		{"owner explicit", "owner", nil, `{"companyIds":["c1"]}`, http.StatusOK, []string{"c1"}},
		{"owner implicit", "owner", nil, "", http.StatusOK, []string{"c1"}},
		{"global admin", "root", []string{"admin"}, `{"companyIds":["c9"]}`, http.StatusOK, []string{"c9"}},
		{"bad body", "owner", nil, `{`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			w := h.do(t, http.MethodPost, "/api/admin/trigger-sync", tt.user, tt.roles, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK {
				if len(h.trigger.calls) != 0 {
					t.Error("dispatcher must not be called")
				}
				return
			}
			body := decode(t, w)
			if body["status"] != "started" {
				t.Errorf("body = %v", body)
			}
			if len(h.trigger.calls) != 1 || strings.Join(h.trigger.calls[0], ",") != strings.Join(tt.targets, ",") {
				t.Errorf("dispatched = %v, want %v", h.trigger.calls, tt.targets)
			}
		})
	}
}

func TestAdminEndpoints(t *testing.T) {
	h := newHarness()

	for _, path := range []string{"/api/admin/sync-status", "/api/admin/sync-runs"} {
		if w := h.do(t, http.MethodGet, path, "owner", nil, ""); w.Code != http.StatusForbidden {
			t.Errorf("%s as owner = %d", path, w.Code)
		}
	}

	w := h.do(t, http.MethodGet, "/api/admin/sync-status", "root", []string{"admin"}, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"isExpired":true`) ||
		!strings.Contains(w.Body.String(), `"consecutiveFailures":2`) {
		t.Errorf("sync-status = %d %s", w.Code, w.Body.String())
	}

	w = h.do(t, http.MethodGet, "/api/admin/sync-runs?limit=5", "root", []string{"admin"}, "")
	if w.Code != http.StatusOK || h.runs.limit != 5 {
		t.Errorf("sync-runs = %d, limit %d", w.Code, h.runs.limit)
	}

	w = h.do(t, http.MethodPost, "/api/admin/clear-cache", "root", []string{"admin"}, "")
	if w.Code != http.StatusOK || decode(t, w)["deleted"] != float64(4) {
		t.Errorf("clear-cache = %d %s", w.Code, w.Body.String())
	}
}

func TestDashboardEndpoints(t *testing.T) {
	h := newHarness()

	if w := h.do(t, http.MethodGet, "/api/dashboard/c2", "viewer", nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("foreign company = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/api/dashboard/c1?days=abc", "viewer", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad days = %d", w.Code)
	}

	w := h.do(t, http.MethodGet, "/api/dashboard/c1?days=7", "viewer", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", w.Code)
	}
	body := decode(t, w)
	if body["cached"] != true || body["data"].(map[string]interface{})["start"] != "7" {
		t.Errorf("body = %v", body)
	}

	if w := h.do(t, http.MethodGet, "/api/dashboard/c1/realtime", "viewer", nil, ""); w.Code != http.StatusOK {
		t.Errorf("realtime = %d", w.Code)
	}
	h.dash.realtimeErr = fmt.Errorf("credential 3 expired: %w", provider.ErrAuthRequired)
	w = h.do(t, http.MethodGet, "/api/dashboard/c1/realtime", "viewer", nil, "")
	if w.Code != http.StatusFailedDependency || decode(t, w)["action"] != "reconnect" {
		t.Errorf("realtime auth = %d %s", w.Code, w.Body.String())
	}

	if w := h.do(t, http.MethodGet, "/api/portfolio", "viewer", nil, ""); w.Code != http.StatusForbidden {
		t.Errorf("portfolio as viewer = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/api/portfolio", "root", []string{"admin"}, ""); w.Code != http.StatusOK {
		t.Errorf("portfolio as admin = %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness()
	if w := h.do(t, http.MethodGet, "/health", "", nil, ""); w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
	w := h.do(t, http.MethodGet, "/metrics", "", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("metrics = %d", w.Code)
	}
}
