package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"pesso/internal/core"
	"pesso/internal/memory"
	"pesso/internal/store"
)

type recordingNotifier struct {
	events []core.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, event core.Notification) {
	n.events = append(n.events, event)
}

type failingStore struct {
	store.LedgerStore
	failPuts bool
}

func (s *failingStore) PutEnvelope(ctx context.Context, e core.Envelope) error {
	if s.failPuts {
		return errors.New("disk full")
	}
	return s.LedgerStore.PutEnvelope(ctx, e)
}

func newTestEngine(t *testing.T) (*Engine, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	engine := New(memory.New(), notifier, WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return engine, notifier
}

func TestLoadSeedsDefaults(t *testing.T) {
	engine, _ := newTestEngine(t)

	envelopes := engine.Envelopes()
	if len(envelopes) != 6 {
		t.Fatalf("expected 6 envelopes, got %d", len(envelopes))
	}
	for _, env := range envelopes {
		if env.Amount.Cents != 2000 {
			t.Fatalf("envelope %s: expected $20.00 seed, got %s", env.ID, env.Amount)
		}
	}
	if got := engine.TotalBalance().Cents; got != 12000 {
		t.Fatalf("expected $120.00 total, got %d cents", got)
	}

	goals := engine.Goals()
	if len(goals) != 3 {
		t.Fatalf("expected 3 goals, got %d", len(goals))
	}
	if goals[0].Name != "New Car" || goals[0].Target.Cents != 1500000 {
		t.Fatalf("unexpected first goal: %+v", goals[0])
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	mem := memory.New()
	notifier := &recordingNotifier{}
	engine := New(mem, notifier)
	ctx := context.Background()

	if err := engine.Load(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := engine.Deposit(ctx, "1", core.Dollars(5), nil); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// A second engine over the same store must see the deposit, not a
	// fresh seed.
	engine2 := New(mem, notifier)
	if err := engine2.Load(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if len(engine2.Envelopes()) != 6 {
		t.Fatalf("expected 6 envelopes after reload, got %d", len(engine2.Envelopes()))
	}
	if got := engine2.Envelopes()[0].Amount.Cents; got != 2500 {
		t.Fatalf("expected deposited balance 2500, got %d", got)
	}
}

func TestDeposit(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	env, err := engine.Deposit(ctx, "2", core.Dollars(30), nil)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if env.Amount.Cents != 5000 {
		t.Fatalf("expected 5000 cents, got %d", env.Amount.Cents)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.events))
	}
	event := notifier.events[0]
	if event.Type != core.NotifyAdd || event.Title != "Money Added" {
		t.Fatalf("unexpected notification: %+v", event)
	}
	if event.Description != "Added $30.00 to Car" {
		t.Fatalf("unexpected description: %q", event.Description)
	}
}

func TestDepositSetsGoal(t *testing.T) {
	engine, _ := newTestEngine(t)

	goal := core.Dollars(100)
	env, err := engine.Deposit(context.Background(), "1", core.Dollars(10), &goal)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if env.Goal == nil || env.Goal.Cents != 10000 {
		t.Fatalf("expected goal $100.00, got %+v", env.Goal)
	}

	// The returned envelope is a copy, mutating its goal must not leak
	// into the engine.
	env.Goal.Cents = 1
	if engine.Envelopes()[0].Goal.Cents != 10000 {
		t.Fatal("returned envelope aliases engine state")
	}
}

func TestDepositRejectsInvalidInput(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Deposit(ctx, "1", core.Money{}, nil); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	badGoal := core.Money{}
	if _, err := engine.Deposit(ctx, "1", core.Dollars(5), &badGoal); !errors.Is(err, core.ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
	if _, err := engine.Deposit(ctx, "99", core.Dollars(5), nil); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Declined operations leave no trace.
	if got := engine.TotalBalance().Cents; got != 12000 {
		t.Fatalf("balance changed on declined deposit: %d", got)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("declined deposit emitted %d notifications", len(notifier.events))
	}
}

func TestWithdrawBoundary(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	// Withdrawing the exact balance succeeds and zeroes the envelope.
	env, err := engine.Withdraw(ctx, "1", core.Dollars(20))
	if err != nil {
		t.Fatalf("exact withdrawal: %v", err)
	}
	if env.Amount.Cents != 0 {
		t.Fatalf("expected zero balance, got %d", env.Amount.Cents)
	}

	// One more cent is declined with both figures carried.
	_, err = engine.Withdraw(ctx, "2", core.Money{Cents: 2001})
	var insufficient *core.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Available.Cents != 2000 || insufficient.Attempted.Cents != 2001 {
		t.Fatalf("wrong figures: %+v", insufficient)
	}
	if insufficient.EnvelopeName != "Car" {
		t.Fatalf("wrong envelope name: %q", insufficient.EnvelopeName)
	}
}

func TestWithdrawGoalGuard(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	// Envelope 1 holds $50 with a $100 goal: already below goal.
	goal := core.Dollars(100)
	if _, err := engine.Deposit(ctx, "1", core.Dollars(30), &goal); err != nil {
		t.Fatalf("setup deposit: %v", err)
	}
	notifier.events = nil

	_, err := engine.Withdraw(ctx, "1", core.Dollars(10))
	var warning *core.GoalWarning
	if !errors.As(err, &warning) {
		t.Fatalf("expected GoalWarning, got %v", err)
	}
	if warning.Balance.Cents != 5000 || warning.Goal.Cents != 10000 || warning.Attempted.Cents != 1000 {
		t.Fatalf("wrong warning figures: %+v", warning)
	}

	// The guarded withdrawal changed nothing.
	if got := engine.Envelopes()[0].Amount.Cents; got != 5000 {
		t.Fatalf("guarded withdrawal mutated balance: %d", got)
	}
	if len(notifier.events) != 0 {
		t.Fatal("guarded withdrawal emitted a notification")
	}

	// Confirmation overrides the guard, not the funds check.
	env, err := engine.WithdrawConfirmed(ctx, "1", core.Dollars(10))
	if err != nil {
		t.Fatalf("confirmed withdrawal: %v", err)
	}
	if env.Amount.Cents != 4000 {
		t.Fatalf("expected 4000 after confirmed withdrawal, got %d", env.Amount.Cents)
	}
	if _, err := engine.WithdrawConfirmed(ctx, "1", core.Dollars(41)); err == nil {
		t.Fatal("confirmed withdrawal over balance should fail")
	}
}

func TestWithdrawAtOrAboveGoalNeedsNoConfirmation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	// Balance $20, goal $20: the guard looks at the current balance, so
	// sitting exactly at the goal withdraws without a warning.
	goal := core.Dollars(40)
	if _, err := engine.Deposit(ctx, "3", core.Dollars(20), &goal); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := engine.Withdraw(ctx, "3", core.Dollars(5)); err != nil {
		t.Fatalf("withdrawal at goal should pass: %v", err)
	}
}

func TestTransfer(t *testing.T) {
	engine, notifier := newTestEngine(t)
	ctx := context.Background()

	from, to, err := engine.Transfer(ctx, "1", "2", core.Dollars(5))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if from.Amount.Cents != 1500 || to.Amount.Cents != 2500 {
		t.Fatalf("unexpected balances: from=%d to=%d", from.Amount.Cents, to.Amount.Cents)
	}

	// Conservation: total is unchanged.
	if got := engine.TotalBalance().Cents; got != 12000 {
		t.Fatalf("transfer changed the total: %d", got)
	}

	if len(notifier.events) != 1 || notifier.events[0].Type != core.NotifyTransfer {
		t.Fatalf("expected one transfer notification, got %+v", notifier.events)
	}
	if notifier.events[0].Description != "Transferred $5.00 from Travels to Car" {
		t.Fatalf("unexpected description: %q", notifier.events[0].Description)
	}
}

func TestTransferRejections(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, _, err := engine.Transfer(ctx, "1", "1", core.Dollars(5)); !errors.Is(err, core.ErrSameEnvelope) {
		t.Fatalf("expected ErrSameEnvelope, got %v", err)
	}
	if _, _, err := engine.Transfer(ctx, "1", "99", core.Dollars(5)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _, err := engine.Transfer(ctx, "1", "2", core.Dollars(21))
	var insufficient *core.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}

	// A transfer with an active goal on the source needs no confirmation.
	goal := core.Dollars(100)
	if _, err := engine.Deposit(ctx, "1", core.Dollars(1), &goal); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, _, err := engine.Transfer(ctx, "1", "2", core.Dollars(5)); err != nil {
		t.Fatalf("goal guard must not apply to transfers: %v", err)
	}
}

func TestStorageFailureKeepsMemoryState(t *testing.T) {
	mem := memory.New()
	failing := &failingStore{LedgerStore: mem}
	engine := New(failing, &recordingNotifier{})
	ctx := context.Background()

	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	failing.failPuts = true
	_, err := engine.Deposit(ctx, "1", core.Dollars(10), nil)
	var storageErr *core.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	// Memory keeps the applied change even though the write failed.
	if got := engine.Envelopes()[0].Amount.Cents; got != 3000 {
		t.Fatalf("expected in-memory 3000, got %d", got)
	}
}
