package worker

import (
	"context"
	"fmt"
	"log/slog"

	"pesso/internal/amqp"
	"pesso/internal/core"
	"pesso/internal/sheets"
	"pesso/internal/storage"
)

// ExportWorker pushes activity entries from SQLite to the Google Sheets
// activity log.
type ExportWorker struct {
	storage   *storage.Repository
	sheets    sheets.ActivityWriter
	batchSize int
}

func NewExportWorker(storage *storage.Repository, sheets sheets.ActivityWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single activity sync message from AMQP.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ActivitySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	notification, err := w.storage.GetNotification(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get notification from storage: %w", err)
	}

	if err := w.exportToSheets(ctx, msg.ID, notification); err != nil {
		return fmt.Errorf("export notification to sheets: %w", err)
	}

	return nil
}

// ProcessPending exports any notifications that haven't been pushed yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending notifications: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending notifications", "count", len(pending))

	for _, n := range pending {
		if err := w.exportToSheets(ctx, n.ID, n); err != nil {
			slog.ErrorContext(ctx, "Failed to export notification", "id", n.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports any pending notifications at worker startup.
// Useful to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending notifications for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending notifications found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending notifications on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, n := range pending {
		if err := w.exportToSheets(ctx, n.ID, n); err != nil {
			slog.ErrorContext(ctx, "Failed to export notification during startup",
				"id", n.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportToSheets(ctx context.Context, id int64, n core.Notification) error {
	ref, err := w.sheets.Append(ctx, n)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", id, "error", err)
		// The export itself worked, keep going
	}

	slog.InfoContext(ctx, "Successfully exported notification",
		"id", id,
		"sheets_ref", ref,
		"type", n.Type,
		"title", n.Title)

	return nil
}
