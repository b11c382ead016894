package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/config"
)

func TestSchedulerDisabled(t *testing.T) {
	s := NewScheduler(&config.SchedulerConfig{Enabled: false, Spec: "bogus"}, zap.NewNop(), nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("disabled scheduler should ignore the spec: %v", err)
	}
	if !s.Next().IsZero() {
		t.Error("nothing should be scheduled")
	}
	s.Stop()
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Spec: "every tuesday"}, zap.NewNop(), nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected invalid spec error")
	}
	s.Stop()
}

func TestSchedulerNext(t *testing.T) {
	svc := newSyncService(&fakeCompanies{}, &fakeRunner{}, newFakeRuns(), NewLocalGuard())
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Spec: "0 */6 * * *"}, zap.NewNop(), svc)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	next := s.Next()
	if next.IsZero() || next.Minute() != 0 || next.Hour()%6 != 0 || next.Before(time.Now()) {
		t.Errorf("next = %v", next)
	}
}

func TestSchedulerRunSync(t *testing.T) {
	runs := newFakeRuns()
	runner := &fakeRunner{}
	svc := newSyncService(&fakeCompanies{}, runner, runs, NewLocalGuard())
	s := NewScheduler(&config.SchedulerConfig{Enabled: true, Spec: "@every 1h"}, zap.NewNop(), svc)
	s.ctx = context.Background()

	s.runSync()
	if len(runs.runs) != 1 {
		t.Fatalf("runs = %d", len(runs.runs))
	}
	for _, r := range runs.runs {
		if r.Trigger != TriggerCron {
			t.Errorf("trigger = %s", r.Trigger)
		}
	}
}
