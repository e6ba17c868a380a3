package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/kv"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// Config tunes an ExportWorker. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds one read-and-export round.
	Timeout  time.Duration
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// ExportWorker mirrors the transactions collection into a spreadsheet
// whenever the API reports a successful write of it.
type ExportWorker struct {
	store    kv.Store
	exporter sheets.TransactionExporter
	timeout  time.Duration
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger

	// mu serializes exports so two rounds never interleave their sheet writes.
	mu           sync.Mutex
	lastRevision uint64
	lastAt       time.Time
}

func NewExportWorker(store kv.Store, exporter sheets.TransactionExporter, cfg Config) *ExportWorker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ExportWorker{
		store:    store,
		exporter: exporter,
		timeout:  cfg.Timeout,
		loc:      cfg.Location,
		now:      cfg.Now,
		log:      applog.WithComponent(cfg.Logger, applog.ComponentWorker),
	}
}

// HandlePersistEvent processes one persist event from AMQP. Events for other
// collections, failed writes and events older than the last export are
// acknowledged without work. A returned error requeues the message.
func (w *ExportWorker) HandlePersistEvent(ctx context.Context, msg *amqp.PersistEventMessage) error {
	fields := applog.NewFields().WithPersist(msg.Key, msg.Revision)
	if msg.Key != kv.KeyTransactions || !msg.Succeeded() {
		w.log.DebugContext(ctx, "Ignoring persist event", append(fields.ToSlice(), applog.FieldStatus, msg.Status)...)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Revisions restart with the API process, so only the timestamp orders
	// events across restarts.
	if msg.Timestamp.Before(w.lastAt) {
		w.log.DebugContext(ctx, "Skipping stale persist event", fields.ToSlice()...)
		return nil
	}

	w.log.InfoContext(ctx, "Processing persist event", fields.ToSlice()...)
	if _, err := w.exportLocked(ctx); err != nil {
		return fmt.Errorf("export revision %d: %w", msg.Revision, err)
	}
	w.lastRevision = msg.Revision
	w.lastAt = msg.Timestamp
	return nil
}

// StartupExport exports once on start, covering writes made while the worker
// was down.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.exportLocked(ctx)
	return err
}

// exportLocked reads the transactions and rewrites the current year's sheet.
// A missing key exports an empty sheet (the collection was reset).
func (w *ExportWorker) exportLocked(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	txs, err := kv.GetJSON[[]core.Transaction](ctx, w.store, kv.KeyTransactions)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return 0, fmt.Errorf("read transactions: %w", err)
	}

	year := w.now().In(w.loc).Year()
	start := time.Now()
	rows, err := w.exporter.ExportTransactions(ctx, year, txs)
	if err != nil {
		w.log.ErrorContext(ctx, "Export failed",
			applog.NewFields().WithOperation(applog.OpExport).WithError(err).ToSlice()...)
		return 0, fmt.Errorf("export %d: %w", year, err)
	}

	w.log.InfoContext(ctx, "Exported transactions",
		applog.FieldOperation, applog.OpExport,
		"year", year,
		"rows", rows,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return rows, nil
}

// LastRevision returns the revision of the last exported event.
func (w *ExportWorker) LastRevision() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRevision
}
