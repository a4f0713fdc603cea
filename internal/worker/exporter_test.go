package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"caisse/internal/core"
)

type fakeLedger struct{ version atomic.Uint64 }

func (f *fakeLedger) Snapshot() core.Snapshot { return core.EmptySnapshot() }
func (f *fakeLedger) Version() uint64         { return f.version.Load() }

type fakeOut struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOut) Export(context.Context, core.Snapshot, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeOut) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDefaultExporterConfig(t *testing.T) {
	config := DefaultExporterConfig()
	if config.Interval != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", config.Interval)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}

	e := NewExporter(&fakeLedger{}, &fakeOut{}, ExporterConfig{}, nil)
	if e.config != config {
		t.Errorf("expected zero config to take defaults, got %+v", e.config)
	}
}

func TestRunOnce_ExportsOnlyOnChange(t *testing.T) {
	l := &fakeLedger{}
	out := &fakeOut{}
	e := NewExporter(l, out, DefaultExporterConfig(), nil)
	ctx := context.Background()

	if e.RunOnce(ctx) {
		t.Fatal("expected no export before any change")
	}
	l.version.Store(3)
	if !e.RunOnce(ctx) {
		t.Fatal("expected export after change")
	}
	if e.RunOnce(ctx) {
		t.Fatal("expected no export when version is unchanged")
	}
	if out.count() != 1 || e.ExportedVersion() != 3 {
		t.Fatalf("expected one export of version 3, got %d calls, version %d", out.count(), e.ExportedVersion())
	}
}

func TestRunOnce_GivesUpAfterMaxRetries(t *testing.T) {
	l := &fakeLedger{}
	l.version.Store(1)
	out := &fakeOut{err: errors.New("quota exceeded")}
	e := NewExporter(l, out, ExporterConfig{Interval: time.Minute, MaxRetries: 2}, nil)
	ctx := context.Background()

	e.RunOnce(ctx)
	if e.ExportedVersion() != 0 {
		t.Fatal("failed export must not be recorded")
	}
	e.RunOnce(ctx)
	if e.ExportedVersion() != 1 {
		t.Fatal("expected version to be skipped after max retries")
	}
	if e.RunOnce(ctx) || out.count() != 2 {
		t.Fatalf("expected no further attempts, got %d calls", out.count())
	}

	out.err = nil
	l.version.Store(2)
	if !e.RunOnce(ctx) || e.ExportedVersion() != 2 {
		t.Fatal("expected next change to export again")
	}
}

func TestExporter_Lifecycle(t *testing.T) {
	l := &fakeLedger{}
	l.version.Store(1)
	out := &fakeOut{}
	e := NewExporter(l, out, ExporterConfig{Interval: 10 * time.Millisecond}, nil)

	if e.IsRunning() {
		t.Fatal("exporter should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}

	deadline := time.Now().Add(2 * time.Second)
	for out.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if out.count() != 1 {
		t.Fatalf("expected one export on startup, got %d", out.count())
	}

	l.version.Store(2)
	for e.ExportedVersion() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e.ExportedVersion() != 2 {
		t.Fatal("expected ticker to export the new version")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := e.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if e.IsRunning() {
		t.Fatal("exporter should not be running after stop")
	}
}

func TestExporter_StopNotRunning(t *testing.T) {
	e := NewExporter(&fakeLedger{}, &fakeOut{}, DefaultExporterConfig(), nil)
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("expected nil error stopping idle exporter, got %v", err)
	}
}
