package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pesso/internal/core"
)

func TestEnvelopeUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.PutEnvelope(ctx, core.Envelope{ID: "1", Name: "Travels", Amount: core.Dollars(20)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutEnvelope(ctx, core.Envelope{ID: "1", Name: "Travels", Amount: core.Dollars(35)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	envelopes, err := s.ListEnvelopes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("expected upsert, got %d envelopes", len(envelopes))
	}
	if envelopes[0].Amount.Cents != 3500 {
		t.Fatalf("expected updated amount, got %d", envelopes[0].Amount.Cents)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"3", "1", "2"} {
		if err := s.PutGoal(ctx, core.Goal{ID: id, Name: "g" + id, Target: core.Dollars(10)}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	goals, err := s.ListGoals(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if goals[0].ID != "3" || goals[1].ID != "1" || goals[2].ID != "2" {
		t.Fatalf("order lost: %+v", goals)
	}
}

func TestNotifications(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	first, err := s.AppendNotification(ctx, core.Notification{Type: core.NotifyAdd, Title: "Money Added", Date: now})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := s.AppendNotification(ctx, core.Notification{Type: core.NotifyWithdraw, Title: "Money Withdrawn", Date: now})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected sequential ids, got %d then %d", first, second)
	}

	// Newest first.
	all, err := s.ListNotifications(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != second {
		t.Fatalf("expected newest first, got %+v", all)
	}

	limited, err := s.ListNotifications(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second {
		t.Fatalf("limit not applied: %+v", limited)
	}

	if err := s.MarkNotificationRead(ctx, first); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	all, _ = s.ListNotifications(ctx, 0)
	if !all[1].Read || all[0].Read {
		t.Fatalf("read flag wrong: %+v", all)
	}

	if err := s.MarkNotificationRead(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChallengeUpsert(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := core.Challenge{ID: "ch-1", Type: core.ChallengeStreak, Status: core.StatusActive}
	if err := s.PutChallenge(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}
	c.Status = core.StatusCompleted
	if err := s.PutChallenge(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}

	challenges, err := s.ListChallenges(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(challenges) != 1 || challenges[0].Status != core.StatusCompleted {
		t.Fatalf("upsert failed: %+v", challenges)
	}
}
