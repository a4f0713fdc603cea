// Package worker runs background jobs over the ledger.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"caisse/internal/core"
	"caisse/internal/log"
)

// Ledger is the part of the ledger store the exporter reads.
type Ledger interface {
	Snapshot() core.Snapshot
	Version() uint64
}

// SnapshotExporter writes a snapshot somewhere durable.
type SnapshotExporter interface {
	Export(ctx context.Context, s core.Snapshot, now time.Time) error
}

// ExporterConfig holds configuration for the exporter.
type ExporterConfig struct {
	// Interval is how often the ledger version is checked (default: 5m)
	Interval time.Duration

	// MaxRetries is how many consecutive failures of one version are
	// tolerated before it is skipped until the next change (default: 3)
	MaxRetries int
}

func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		Interval:   5 * time.Minute,
		MaxRetries: 3,
	}
}

// Exporter periodically exports the ledger when its version changed since
// the last successful export.
type Exporter struct {
	ledger Ledger
	out    SnapshotExporter
	config ExporterConfig
	now    func() time.Time
	logger *log.Logger

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	exported uint64
	attempts int
}

func NewExporter(l Ledger, out SnapshotExporter, config ExporterConfig, logger *log.Logger) *Exporter {
	if config.Interval <= 0 {
		config.Interval = DefaultExporterConfig().Interval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultExporterConfig().MaxRetries
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{
		ledger: l,
		out:    out,
		config: config,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the export loop. Returns an error if already running.
func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("exporter is already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.runLoop(ctx)

	e.logger.InfoContext(ctx, "Exporter started", "interval", e.config.Interval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (e *Exporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		e.logger.InfoContext(ctx, "Exporter stopped gracefully")
	case <-ctx.Done():
		e.logger.WarnContext(ctx, "Exporter stop timed out")
		return ctx.Err()
	}

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return nil
}

func (e *Exporter) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ExportedVersion is the ledger version of the last successful export.
func (e *Exporter) ExportedVersion() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exported
}

func (e *Exporter) runLoop(ctx context.Context) {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	e.RunOnce(ctx)

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce exports the current snapshot if the ledger changed since the last
// successful export. It reports whether an export was attempted.
func (e *Exporter) RunOnce(ctx context.Context) bool {
	version := e.ledger.Version()

	e.mu.Lock()
	if version == e.exported {
		e.mu.Unlock()
		return false
	}
	e.mu.Unlock()

	err := e.out.Export(ctx, e.ledger.Snapshot(), e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.attempts++
		e.logger.WarnContext(ctx, "Export failed",
			log.FieldVersion, version,
			"attempt", e.attempts,
			log.FieldError, err)
		if e.attempts >= e.config.MaxRetries {
			e.logger.ErrorContext(ctx, "Export failed permanently, waiting for next change",
				log.FieldVersion, version,
				log.FieldSuccess, false)
			e.exported = version
			e.attempts = 0
		}
		return true
	}
	e.exported = version
	e.attempts = 0
	e.logger.DebugContext(ctx, "Export completed", log.FieldVersion, version, log.FieldSuccess, true)
	return true
}
