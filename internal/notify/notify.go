// Package notify appends domain events to the activity log and fans
// them out to the export queue. It is write-only and best-effort: no
// failure in here ever reaches the ledger or challenge operation that
// produced the event.
package notify

import (
	"context"
	"log/slog"

	"pesso/internal/core"
	"pesso/internal/store"
)

// Publisher is the broker side of the sink. Nil-able: without a broker
// the sink degrades to local persistence only.
type Publisher interface {
	PublishActivitySync(ctx context.Context, id int64) error
}

type Log struct {
	store     store.NotificationStore
	publisher Publisher
}

var _ store.Notifier = (*Log)(nil)

func NewLog(s store.NotificationStore, p Publisher) *Log {
	return &Log{store: s, publisher: p}
}

// Notify persists the notification and publishes an export request.
// Both steps are fire-and-forget; failures are logged and swallowed.
func (l *Log) Notify(ctx context.Context, n core.Notification) {
	id, err := l.store.AppendNotification(ctx, n)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save notification",
			"type", n.Type,
			"title", n.Title,
			"error", err)
		return
	}

	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishActivitySync(ctx, id); err != nil {
		// The row is saved locally; the worker's periodic pass picks
		// up anything the broker missed.
		slog.ErrorContext(ctx, "Failed to publish activity sync message",
			"id", id,
			"error", err)
	}
}
