package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pesso/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "pesso.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEnvelopeRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	goal := core.Dollars(100)
	env := core.Envelope{ID: "1", Name: "Travels", Icon: "airplane", Amount: core.Dollars(20), Goal: &goal}
	if err := repo.PutEnvelope(ctx, env); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Upsert replaces, never duplicates.
	env.Amount = core.Dollars(35)
	env.Goal = nil
	if err := repo.PutEnvelope(ctx, env); err != nil {
		t.Fatalf("update: %v", err)
	}

	envelopes, err := repo.ListEnvelopes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envelopes))
	}
	got := envelopes[0]
	if got.Amount.Cents != 3500 || got.Goal != nil || got.Icon != "airplane" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	date := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	g := core.Goal{ID: "1", Name: "New Car", Emoji: "🚗", Target: core.Dollars(15000), Saved: core.Dollars(3500), Date: &date}
	if err := repo.PutGoal(ctx, g); err != nil {
		t.Fatalf("put: %v", err)
	}

	goals, err := repo.ListGoals(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	got := goals[0]
	if got.Target.Cents != 1500000 || got.Saved.Cents != 350000 {
		t.Fatalf("amounts mismatch: %+v", got)
	}
	if got.Date == nil || !got.Date.Equal(date) {
		t.Fatalf("date mismatch: %v", got.Date)
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := core.Challenge{
		ID:             "ch-1",
		Type:           core.ChallengeRoulette,
		Title:          "Savings Roulette",
		Description:    "Random amount when you spin",
		Emoji:          "🎲",
		Color:          "roulette",
		Status:         core.StatusActive,
		CreatedAt:      now,
		EndDate:        now.Add(30 * 24 * time.Hour),
		Saved:          core.Dollars(5),
		Target:         core.Dollars(15),
		Duration:       30,
		MinAmount:      core.Dollars(5),
		MaxAmount:      core.Dollars(10),
		Spins:          2,
		RemainingSpins: 1,
		History: []core.Contribution{
			{Date: now, Amount: core.Dollars(5), Note: "Roulette spin"},
		},
	}
	if err := repo.PutChallenge(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Complete it and upsert.
	c.Status = core.StatusCompleted
	c.RemainingSpins = 0
	c.CompletedAt = &now
	if err := repo.PutChallenge(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}

	challenges, err := repo.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(challenges) != 1 {
		t.Fatalf("expected 1 challenge, got %d", len(challenges))
	}
	got := challenges[0]
	if got.Status != core.StatusCompleted || got.RemainingSpins != 0 {
		t.Fatalf("status not updated: %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Fatalf("completed_at mismatch: %v", got.CompletedAt)
	}
	if len(got.History) != 1 || got.History[0].Amount.Cents != 500 || got.History[0].Note != "Roulette spin" {
		t.Fatalf("history mismatch: %+v", got.History)
	}
	if !got.CreatedAt.Equal(now) || !got.EndDate.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("dates mismatch: %+v", got)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	amount := core.Dollars(5)
	first, err := repo.AppendNotification(ctx, core.Notification{
		Type: core.NotifyAdd, Title: "Money Added", Description: "Added $5.00 to Travels",
		Amount: &amount, Date: now,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := repo.AppendNotification(ctx, core.Notification{
		Type: core.NotifyWithdraw, Title: "Money Withdrawn", Date: now,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	// Newest first, limit applied.
	list, err := repo.ListNotifications(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != second {
		t.Fatalf("expected newest first with limit, got %+v", list)
	}

	got, err := repo.GetNotification(ctx, first)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount == nil || got.Amount.Cents != 500 || !got.Date.Equal(now) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := repo.MarkNotificationRead(ctx, first); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _ = repo.GetNotification(ctx, first)
	if !got.Read {
		t.Fatal("read flag not persisted")
	}

	if err := repo.MarkNotificationRead(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetNotification(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportBookkeeping(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.AppendNotification(ctx, core.Notification{Type: core.NotifyAdd, Title: "Money Added", Date: now})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}

	pending, err := repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	// Oldest first for export.
	if pending[0].ID != ids[0] {
		t.Fatalf("expected oldest first, got %+v", pending)
	}

	if err := repo.MarkExported(ctx, ids[0]); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := repo.MarkExportError(ctx, ids[1]); err != nil {
		t.Fatalf("mark export error: %v", err)
	}

	pending, err = repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Fatalf("bookkeeping wrong, pending: %+v", pending)
	}

	// Batch limit.
	pending, _ = repo.ListPendingExport(ctx, 0)
	if len(pending) != 0 {
		t.Fatalf("limit 0 should return nothing, got %d", len(pending))
	}
}
