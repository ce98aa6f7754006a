package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool
	stopped  atomic.Bool
	order    *[]string
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	if s.block {
		<-ctx.Done()
	}
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped.Store(true)
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	return nil
}

func TestRunnerStopsAllWhenOneFails(t *testing.T) {
	boom := errors.New("boom")
	healthy := &fakeService{name: "healthy", block: true}
	failing := &fakeService{name: "failing", startErr: boom}

	err := NewRunner(healthy, failing).Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !healthy.stopped.Load() || !failing.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerCancelledContextIsClean(t *testing.T) {
	svc := &fakeService{name: "bot", block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancel should exit cleanly, got %v", err)
	}
	if !svc.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestRunnerStopsInReverseOrder(t *testing.T) {
	var order []string
	first := &fakeService{name: "http", block: true, order: &order}
	second := &fakeService{name: "worker", block: true, order: &order}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRunner(first, nil, second).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "worker" || order[1] != "http" {
		t.Fatalf("unexpected stop order: %v", order)
	}
}

func TestRunnerNamesSkipsNil(t *testing.T) {
	names := NewRunner(nil, &fakeService{name: "discord"}).Names()
	if len(names) != 1 || names[0] != "discord" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestHTTPServiceTimeouts(t *testing.T) {
	svc := NewHTTPService(":0", nil)
	if svc.Name() != "http" || svc.Addr() != ":0" {
		t.Fatalf("unexpected http service: %s %s", svc.Name(), svc.Addr())
	}
	if svc.server.ReadHeaderTimeout != httpReadHeaderTimeout {
		t.Fatalf("read header timeout not applied")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner should fail")
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker, ModeBot} {
		if !ValidMode(mode) {
			t.Fatalf("%s should be valid", mode)
		}
	}
	if ValidMode("cron") {
		t.Fatalf("cron should be invalid")
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	if _, _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{})
	if opts.Mode != ModeAll || opts.ShutdownTimeout != 10*time.Second || opts.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
