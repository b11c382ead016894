package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/service/syncengine"
)

func newSyncService(companies *fakeCompanies, runner *fakeRunner, runs *fakeRuns, guard RunGuard) *SyncService {
	monitoring := NewMonitoringService(runs, fixedNow, zap.NewNop())
	svc := NewSyncService(companies, runner, guard, monitoring, "s3cret", time.Hour, zap.NewNop())
	svc.now = fixedNow
	return svc
}

func sampleResult() syncengine.RunResult {
	return syncengine.RunResult{
		Results: []syncengine.CompanyResult{
			{CompanyID: "a", Success: true, Platforms: []syncengine.TaskResult{
				{CompanyID: "a", Platform: models.PlatformAnalytics, Outcome: syncengine.OutcomeSuccess, Rows: 3},
				{CompanyID: "a", Platform: models.PlatformYouTube, Outcome: syncengine.OutcomeSkipped},
			}},
			{CompanyID: "b", Success: false, Error: "linkedin: 500", Platforms: []syncengine.TaskResult{
				{CompanyID: "b", Platform: models.PlatformLinkedIn, Outcome: syncengine.OutcomeAPIError, Error: "500"},
				{CompanyID: "b", Platform: models.PlatformSearchConsole, Outcome: syncengine.OutcomeAuthRequired, Error: "expired"},
			}},
		},
		Performance: syncengine.Performance{DurationMs: 1200, BatchesProcessed: 1, SuccessCount: 1, ErrorCount: 1},
	}
}

func TestVerifySecret(t *testing.T) {
	svc := newSyncService(&fakeCompanies{}, &fakeRunner{}, newFakeRuns(), NewLocalGuard())
	tests := []struct {
		secret string
		ok     bool
	}{
		{"s3cret", true},
		{"", false},
		{"S3CRET", false},
		{"s3cret ", false},
	}
	for _, tt := range tests {
		if err := svc.VerifySecret(tt.secret); (err == nil) != tt.ok {
			t.Errorf("VerifySecret(%q) = %v", tt.secret, err)
		}
	}

	unset := NewSyncService(&fakeCompanies{}, &fakeRunner{}, NewLocalGuard(), nil, "", time.Hour, zap.NewNop())
	if !errors.Is(unset.VerifySecret(""), ErrUnauthorizedSecret) {
		t.Error("an unset secret must reject every request")
	}
}

func TestSyncRunRecordsHistory(t *testing.T) {
	companies := &fakeCompanies{companies: []models.Company{{ID: "a"}, {ID: "b"}}}
	runner := &fakeRunner{result: sampleResult()}
	runs := newFakeRuns()
	svc := newSyncService(companies, runner, runs, NewLocalGuard())

	resp, err := svc.Run(context.Background(), SyncRequest{Force: true, Trigger: TriggerCron})
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.companies) != 2 || !runner.opts.Force || runner.opts.MinInterval != time.Hour {
		t.Errorf("runner got %d companies, opts %+v", len(runner.companies), runner.opts)
	}
	if resp.RunID == "" || resp.Message != "Sync completed for 2 companies" || resp.Performance.ErrorCount != 1 {
		t.Errorf("response = %+v", resp)
	}

	run, ok := runs.runs[resp.RunID]
	if !ok {
		t.Fatal("run not persisted")
	}
	if run.Trigger != TriggerCron || !run.Forced || run.FinishedAt == nil || run.SuccessCount != 1 || run.ErrorCount != 1 {
		t.Errorf("run = %+v", run)
	}

	logs, _ := runs.ListErrorLogs(context.Background(), resp.RunID)
	if len(logs) != 2 {
		t.Fatalf("error logs = %d, want 2", len(logs))
	}
	outcomes := map[string]bool{}
	for _, l := range logs {
		outcomes[l.Outcome] = true
		if l.CompanyID == nil || *l.CompanyID != "b" {
			t.Errorf("log company = %v", l.CompanyID)
		}
	}
	if !outcomes["api_error"] || !outcomes["auth_required"] {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestSyncRunScopedToCompanyIDs(t *testing.T) {
	companies := &fakeCompanies{companies: []models.Company{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	runner := &fakeRunner{}
	svc := newSyncService(companies, runner, newFakeRuns(), NewLocalGuard())

	resp, err := svc.Run(context.Background(), SyncRequest{CompanyIDs: []string{"c", "zzz"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.companies) != 1 || runner.companies[0].ID != "c" {
		t.Errorf("runner companies = %+v", runner.companies)
	}
	if resp.Message != "No companies need syncing" || resp.Results == nil {
		t.Errorf("response = %+v", resp)
	}
}

func TestSyncRunListFailure(t *testing.T) {
	runs := newFakeRuns()
	runner := &fakeRunner{}
	svc := newSyncService(&fakeCompanies{err: errDown}, runner, runs, NewLocalGuard())

	if _, err := svc.Run(context.Background(), SyncRequest{}); !errors.Is(err, errDown) {
		t.Fatalf("err = %v", err)
	}
	if runner.companies != nil || len(runs.runs) != 0 {
		t.Error("nothing should run when companies cannot be listed")
	}

	// the guard must be released after a failure
	svc.companies = &fakeCompanies{}
	if _, err := svc.Run(context.Background(), SyncRequest{}); err != nil {
		t.Errorf("second run: %v", err)
	}
}

func TestSyncRunRunnerFailure(t *testing.T) {
	runs := newFakeRuns()
	svc := newSyncService(&fakeCompanies{}, &fakeRunner{err: errDown}, runs, NewLocalGuard())
	if _, err := svc.Run(context.Background(), SyncRequest{}); !errors.Is(err, errDown) {
		t.Fatalf("err = %v", err)
	}
	for _, r := range runs.runs {
		if r.FinishedAt == nil {
			t.Error("failed run should still be closed")
		}
	}
}

func TestSyncRunInProgress(t *testing.T) {
	guard := NewLocalGuard()
	runner := &fakeRunner{entered: make(chan struct{}), block: make(chan struct{})}
	svc := newSyncService(&fakeCompanies{}, runner, newFakeRuns(), guard)

	done := make(chan error)
	go func() {
		_, err := svc.Run(context.Background(), SyncRequest{})
		done <- err
	}()
	<-runner.entered

	if _, err := svc.Run(context.Background(), SyncRequest{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("concurrent run err = %v", err)
	}
	close(runner.block)
	if err := <-done; err != nil {
		t.Errorf("first run: %v", err)
	}
}

func TestSyncRunIgnoresCancellation(t *testing.T) {
	runner := &fakeRunner{}
	svc := newSyncService(&fakeCompanies{}, runner, newFakeRuns(), NewLocalGuard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Run(ctx, SyncRequest{}); err != nil {
		t.Fatal(err)
	}
	if runner.ctxErr != nil {
		t.Errorf("runner saw cancelled context: %v", runner.ctxErr)
	}
}

func TestPartialRunMessage(t *testing.T) {
	res := sampleResult()
	res.Partial = true
	res.Deferred = []string{"c", "d", "e"}
	runs := newFakeRuns()
	svc := newSyncService(&fakeCompanies{}, &fakeRunner{result: res}, runs, NewLocalGuard())

	resp, err := svc.Run(context.Background(), SyncRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Partial || resp.Message != "Sync partially completed: 2 companies synced, 3 deferred" {
		t.Errorf("response = %+v", resp)
	}
	var warned bool
	for _, l := range runs.logs {
		if l.Level == "WARN" {
			warned = true
		}
	}
	if !warned {
		t.Error("deferred companies should be logged")
	}
}

func TestLocalGuard(t *testing.T) {
	g := NewLocalGuard()
	release, ok, err := g.Acquire(context.Background())
	if !ok || err != nil {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	if _, ok, _ := g.Acquire(context.Background()); ok {
		t.Error("second acquire should fail while held")
	}
	release()
	release()
	if r, ok, _ := g.Acquire(context.Background()); !ok {
		t.Error("acquire after release should succeed")
	} else {
		r()
	}
}
