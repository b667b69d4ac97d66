package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fuellog/internal/amqp"
	"fuellog/internal/core"
	"fuellog/internal/ledger"
	applog "fuellog/internal/log"
	"fuellog/internal/metrics"
	"fuellog/internal/services"
	"fuellog/internal/sheets"
)

// startupBatches bounds how many pending batches StartupSyncCheck drains.
const startupBatches = 5

// SyncWorker exports fuel entries from the ledger to the spreadsheet.
type SyncWorker struct {
	store     ledger.Store
	exporter  sheets.EntryExporter
	batchSize int
	metrics   *metrics.Metrics
	logger    *applog.Logger
	now       func() time.Time
}

func NewSyncWorker(store ledger.Store, exporter sheets.EntryExporter, batchSize int, m *metrics.Metrics, logger *applog.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleSyncMessage exports the entry named by msg. Unknown and already
// synced entries are skipped so the message is acknowledged.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		applog.FieldEntryID, msg.ID,
		"message_id", msg.MessageID)

	entry, err := w.store.Entry(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Entry for sync message not found, dropping", applog.FieldEntryID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry %d: %w", msg.ID, err)
	}
	if entry.SyncedAt != nil {
		w.logger.DebugContext(ctx, "Entry already synced", applog.FieldEntryID, msg.ID)
		return nil
	}

	if _, err := services.ExportEntries(ctx, w.exporter, w.store, []core.FuelEntry{entry}, w.now, w.metrics); err != nil {
		return fmt.Errorf("sync entry %d: %w", msg.ID, err)
	}
	w.logger.InfoContext(ctx, "Entry synced to sheet", applog.FieldEntryID, msg.ID)
	return nil
}

// ProcessPendingEntries exports one batch of unsynced entries, oldest first.
// It recovers entries whose sync message was lost.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) (int, error) {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending entries", applog.FieldCount, len(pending))
	n, err := services.ExportEntries(ctx, w.exporter, w.store, pending, w.now, w.metrics)
	if err != nil {
		return n, fmt.Errorf("export pending entries: %w", err)
	}
	return n, nil
}

// StartupSyncCheck drains pending entries left over from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for i := 0; i < startupBatches; i++ {
		n, err := w.ProcessPendingEntries(ctx)
		total += n
		if err != nil {
			return fmt.Errorf("startup sync check: %w", err)
		}
		if n < w.batchSize {
			break
		}
	}

	if total == 0 {
		w.logger.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync check completed", applog.FieldCount, total)
	return nil
}
