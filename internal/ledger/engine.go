// Package ledger implements the envelope and goal ledger: balances,
// deposits, withdrawals with goal guarding, and transfers.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pesso/internal/core"
	"pesso/internal/store"
)

// Engine owns the envelope and goal collections. All operations are
// serialized: in-memory state mutates first, persistence follows, and a
// failed write is reported without rolling memory back.
type Engine struct {
	mu        sync.Mutex
	store     store.LedgerStore
	notifier  store.Notifier
	now       func() time.Time
	envelopes []core.Envelope
	goals     []core.Goal
}

type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(s store.LedgerStore, n store.Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		notifier: n,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads both collections, seeding the defaults when a collection is
// empty. Loading a non-empty store never re-inserts seed data.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	envelopes, err := e.store.ListEnvelopes(ctx)
	if err != nil {
		return fmt.Errorf("list envelopes: %w", err)
	}
	if len(envelopes) == 0 {
		envelopes = defaultEnvelopes()
		for _, env := range envelopes {
			if err := e.store.PutEnvelope(ctx, env); err != nil {
				return &core.StorageError{Op: "seed envelope " + env.ID, Err: err}
			}
		}
		slog.InfoContext(ctx, "Seeded default envelopes", "count", len(envelopes))
	}
	e.envelopes = envelopes

	goals, err := e.store.ListGoals(ctx)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}
	if len(goals) == 0 {
		goals = defaultGoals()
		for _, g := range goals {
			if err := e.store.PutGoal(ctx, g); err != nil {
				return &core.StorageError{Op: "seed goal " + g.ID, Err: err}
			}
		}
		slog.InfoContext(ctx, "Seeded default goals", "count", len(goals))
	}
	e.goals = goals

	return nil
}

// Deposit adds amount to an envelope, optionally setting or replacing
// its savings target in the same operation.
func (e *Engine) Deposit(ctx context.Context, envelopeID string, amount core.Money, newGoal *core.Money) (core.Envelope, error) {
	if err := amount.Validate(); err != nil {
		return core.Envelope{}, err
	}
	if newGoal != nil && newGoal.Cents <= 0 {
		return core.Envelope{}, core.ErrInvalidGoal
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findEnvelope(envelopeID)
	if idx < 0 {
		return core.Envelope{}, fmt.Errorf("envelope %s: %w", envelopeID, core.ErrNotFound)
	}

	env := &e.envelopes[idx]
	env.Amount = env.Amount.Add(amount)
	if newGoal != nil {
		goal := *newGoal
		env.Goal = &goal
	}

	if err := e.store.PutEnvelope(ctx, *env); err != nil {
		return cloneEnvelope(*env), &core.StorageError{Op: "put envelope " + env.ID, Err: err}
	}

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyAdd,
		Title:       "Money Added",
		Description: fmt.Sprintf("Added %s to %s", amount, env.Name),
		Amount:      &amount,
		Date:        e.now(),
	})
	return cloneEnvelope(*env), nil
}

// AddToGoal records progress toward a standalone savings goal. Goals
// have no status: saved may pass the target without any transition.
func (e *Engine) AddToGoal(ctx context.Context, goalID string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i := range e.goals {
		if e.goals[i].ID == goalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Goal{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}

	g := &e.goals[idx]
	g.Saved = g.Saved.Add(amount)

	if err := e.store.PutGoal(ctx, *g); err != nil {
		return *g, &core.StorageError{Op: "put goal " + g.ID, Err: err}
	}

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyGoal,
		Title:       "Goal Progress!",
		Description: fmt.Sprintf("Added %s to %s. Total: %s", amount, g.Name, g.Saved),
		Amount:      &amount,
		Date:        e.now(),
	})
	return *g, nil
}

// Withdraw removes amount from an envelope. When the envelope has an
// active goal and its current balance already sits below it, the
// operation stops with a GoalWarning and no mutation; WithdrawConfirmed
// is the explicit override.
func (e *Engine) Withdraw(ctx context.Context, envelopeID string, amount core.Money) (core.Envelope, error) {
	return e.withdraw(ctx, envelopeID, amount, false)
}

// WithdrawConfirmed bypasses the goal guard only. The insufficient-funds
// check still applies.
func (e *Engine) WithdrawConfirmed(ctx context.Context, envelopeID string, amount core.Money) (core.Envelope, error) {
	return e.withdraw(ctx, envelopeID, amount, true)
}

func (e *Engine) withdraw(ctx context.Context, envelopeID string, amount core.Money, confirmed bool) (core.Envelope, error) {
	if err := amount.Validate(); err != nil {
		return core.Envelope{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.findEnvelope(envelopeID)
	if idx < 0 {
		return core.Envelope{}, fmt.Errorf("envelope %s: %w", envelopeID, core.ErrNotFound)
	}

	env := &e.envelopes[idx]
	if env.Amount.LessThan(amount) {
		return core.Envelope{}, &core.InsufficientFundsError{
			EnvelopeName: env.Name,
			Available:    env.Amount,
			Attempted:    amount,
		}
	}
	if !confirmed && env.HasGoal() && env.Amount.LessThan(*env.Goal) {
		return core.Envelope{}, &core.GoalWarning{
			EnvelopeID: env.ID,
			Goal:       *env.Goal,
			Balance:    env.Amount,
			Attempted:  amount,
		}
	}

	env.Amount = env.Amount.Sub(amount)

	if err := e.store.PutEnvelope(ctx, *env); err != nil {
		return cloneEnvelope(*env), &core.StorageError{Op: "put envelope " + env.ID, Err: err}
	}

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyWithdraw,
		Title:       "Money Withdrawn",
		Description: fmt.Sprintf("Withdrew %s from %s", amount, env.Name),
		Amount:      &amount,
		Date:        e.now(),
	})
	return cloneEnvelope(*env), nil
}

// Transfer moves amount between two envelopes. No goal guard applies.
// The two writes are sequential: a failure between them leaves storage
// behind memory until the next successful write of the second envelope.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount core.Money) (core.Envelope, core.Envelope, error) {
	if fromID == toID {
		return core.Envelope{}, core.Envelope{}, core.ErrSameEnvelope
	}
	if err := amount.Validate(); err != nil {
		return core.Envelope{}, core.Envelope{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fromIdx := e.findEnvelope(fromID)
	if fromIdx < 0 {
		return core.Envelope{}, core.Envelope{}, fmt.Errorf("envelope %s: %w", fromID, core.ErrNotFound)
	}
	toIdx := e.findEnvelope(toID)
	if toIdx < 0 {
		return core.Envelope{}, core.Envelope{}, fmt.Errorf("envelope %s: %w", toID, core.ErrNotFound)
	}

	from, to := &e.envelopes[fromIdx], &e.envelopes[toIdx]
	if from.Amount.LessThan(amount) {
		return core.Envelope{}, core.Envelope{}, &core.InsufficientFundsError{
			EnvelopeName: from.Name,
			Available:    from.Amount,
			Attempted:    amount,
		}
	}

	from.Amount = from.Amount.Sub(amount)
	to.Amount = to.Amount.Add(amount)

	if err := e.store.PutEnvelope(ctx, *from); err != nil {
		return cloneEnvelope(*from), cloneEnvelope(*to), &core.StorageError{Op: "put envelope " + from.ID, Err: err}
	}
	if err := e.store.PutEnvelope(ctx, *to); err != nil {
		return cloneEnvelope(*from), cloneEnvelope(*to), &core.StorageError{Op: "put envelope " + to.ID, Err: err}
	}

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyTransfer,
		Title:       "Transfer Completed",
		Description: fmt.Sprintf("Transferred %s from %s to %s", amount, from.Name, to.Name),
		Amount:      &amount,
		Date:        e.now(),
	})
	return cloneEnvelope(*from), cloneEnvelope(*to), nil
}

// Envelopes returns a defensive copy of the collection.
func (e *Engine) Envelopes() []core.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Envelope, len(e.envelopes))
	for i, env := range e.envelopes {
		out[i] = cloneEnvelope(env)
	}
	return out
}

// Goals returns a defensive copy of the collection.
func (e *Engine) Goals() []core.Goal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Goal, len(e.goals))
	copy(out, e.goals)
	return out
}

// TotalBalance sums every envelope's balance.
func (e *Engine) TotalBalance() core.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total core.Money
	for _, env := range e.envelopes {
		total = total.Add(env.Amount)
	}
	return total
}

func (e *Engine) findEnvelope(id string) int {
	for i := range e.envelopes {
		if e.envelopes[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneEnvelope(env core.Envelope) core.Envelope {
	if env.Goal != nil {
		goal := *env.Goal
		env.Goal = &goal
	}
	return env
}

func defaultEnvelopes() []core.Envelope {
	return []core.Envelope{
		{ID: "1", Name: "Travels", Icon: "airplane", Amount: core.Dollars(20)},
		{ID: "2", Name: "Car", Icon: "car", Amount: core.Dollars(20)},
		{ID: "3", Name: "Vacation", Icon: "sunny", Amount: core.Dollars(20)},
		{ID: "4", Name: "House", Icon: "home", Amount: core.Dollars(20)},
		{ID: "5", Name: "Investments", Icon: "trending-up", Amount: core.Dollars(20)},
		{ID: "6", Name: "Emergencies", Icon: "medical", Amount: core.Dollars(20)},
	}
}

func defaultGoals() []core.Goal {
	return []core.Goal{
		{ID: "1", Name: "New Car", Emoji: "🚗", Target: core.Dollars(15000), Saved: core.Dollars(3500)},
		{ID: "2", Name: "Viaje Europa", Emoji: "✈️", Target: core.Dollars(5000), Saved: core.Dollars(1200)},
		{ID: "3", Name: "Fondo Emergencia", Emoji: "🛡️", Target: core.Dollars(10000), Saved: core.Dollars(1500)},
	}
}
