package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/metrics"
)

func newMaintenanceService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestCycleRunsRetentionAfterExpiryFails(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	repo := &fakeOutboxRetentionRepo{}
	store := newMemoryRedis()
	lock, _ := NewRedisLock(store, "cron:lock:test", 0)
	reg := prometheus.NewRegistry()
	service := newMaintenanceService(t, lock, reg, newExpiryJob(t, expirer, 10), newOutboxRetentionJob(t, repo, 5))

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(expirer.cutoffs) != 1 {
		t.Fatalf("expected one expiry sweep, got %d", len(expirer.cutoffs))
	}
	if repo.called != 1 {
		t.Fatalf("expected retention to run after expiry failure, ran %d", repo.called)
	}
	if _, held := store.values["cron:lock:test"]; held {
		t.Fatal("lock must be released after the cycle")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	want := map[string]float64{
		"order-expiry/" + metrics.JobOutcomeFailed:        1,
		"outbox-retention/" + metrics.JobOutcomeSucceeded: 1,
	}
	got := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var job, outcome string
			for _, pair := range m.GetLabel() {
				switch pair.GetName() {
				case "job":
					job = pair.GetValue()
				case "outcome":
					outcome = pair.GetValue()
				}
			}
			got[job+"/"+outcome] = m.GetCounter().GetValue()
		}
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("runs %s: got %f want %f (all %v)", key, got[key], value, got)
		}
	}
}

func TestCycleSkipsWhileAnotherWorkerHoldsLock(t *testing.T) {
	store := newMemoryRedis()
	other, _ := NewRedisLock(store, "cron:lock:test", 0)
	ctx := context.Background()
	if ok, err := other.Acquire(ctx); err != nil || !ok {
		t.Fatalf("other acquire: ok=%v err=%v", ok, err)
	}

	expirer := &fakeExpirer{}
	repo := &fakeOutboxRetentionRepo{}
	lock, _ := NewRedisLock(store, "cron:lock:test", 0)
	reg := prometheus.NewRegistry()
	service := newMaintenanceService(t, lock, reg, newExpiryJob(t, expirer, 10), newOutboxRetentionJob(t, repo, 5))

	if err := service.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(expirer.cutoffs) != 0 || repo.called != 0 {
		t.Fatalf("jobs ran without the lock: expiry=%d retention=%d", len(expirer.cutoffs), repo.called)
	}
	if got := gatherCounter(t, reg, "cron_cycles_skipped_total"); got != 1 {
		t.Fatalf("expected one skipped cycle, got %f", got)
	}

	if err := other.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := service.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(expirer.cutoffs) != 1 || repo.called != 1 {
		t.Fatalf("expected jobs to run once lock was free: expiry=%d retention=%d", len(expirer.cutoffs), repo.called)
	}
}

type failingLock struct{}

func (failingLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (failingLock) Release(context.Context) error         { return nil }

func TestCycleReportsLockError(t *testing.T) {
	expirer := &fakeExpirer{}
	service := newMaintenanceService(t, failingLock{}, nil, newExpiryJob(t, expirer, 10))
	if err := service.RunOnce(context.Background()); err == nil {
		t.Fatal("expected lock error")
	}
	if len(expirer.cutoffs) != 0 {
		t.Fatal("expiry must not run when the lock cannot be checked")
	}
}

func TestNewServiceRequiresJobs(t *testing.T) {
	registry, _ := NewRegistry()
	_, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     failingLock{},
	})
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func gatherCounter(t *testing.T, reg prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
