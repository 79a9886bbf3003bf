package store

import (
	"context"

	"pesso/internal/core"
)

// Ports for outbound adapters. Each collection gets a read-all/upsert
// pair; a missing or uninitialized backing collection reads as empty,
// never as an error.
type (
	EnvelopeStore interface {
		ListEnvelopes(ctx context.Context) ([]core.Envelope, error)
		PutEnvelope(ctx context.Context, e core.Envelope) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context) ([]core.Goal, error)
		PutGoal(ctx context.Context, g core.Goal) error
	}

	ChallengeStore interface {
		ListChallenges(ctx context.Context) ([]core.Challenge, error)
		PutChallenge(ctx context.Context, c core.Challenge) error
	}

	// NotificationStore persists the append-only activity log. IDs are
	// assigned by the store, not the caller.
	NotificationStore interface {
		AppendNotification(ctx context.Context, n core.Notification) (int64, error)
		ListNotifications(ctx context.Context, limit int) ([]core.Notification, error)
		MarkNotificationRead(ctx context.Context, id int64) error
	}

	// LedgerStore is the slice of the store the ledger engine owns.
	LedgerStore interface {
		EnvelopeStore
		GoalStore
	}

	// Notifier is the engines' write-only event sink. Implementations
	// swallow and log their own failures: a lost notification must never
	// fail the domain operation that produced it.
	Notifier interface {
		Notify(ctx context.Context, n core.Notification)
	}
)
