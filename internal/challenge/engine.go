// Package challenge implements the gamified savings challenges: creation
// with type-specific targets, contributions, roulette spins and the
// forward-only completion state machine.
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"pesso/internal/core"
	"pesso/internal/store"
)

const (
	defaultDuration = 30
	weeks52Target   = 1378 // closed-form 1+2+...+52, in dollars
	weeks52Days     = 365
	defaultMinSpin  = 5
	defaultMaxSpin  = 50
	defaultDailyMin = 5
	hoursPerDay     = 24
	weeklyFreqDays  = 7
)

// Config carries the type-specific creation fields. Fields that do not
// apply to the chosen type are ignored.
type Config struct {
	Duration  int
	MinAmount core.Money
	MaxAmount core.Money
	Amount    core.Money // fixed: contribution per period
	Frequency string     // fixed: Daily or Weekly
	Category  string     // no-spend: category to avoid
	Spins     int        // roulette
}

// Engine owns the challenge collection, with injected persistence,
// event sink, clock and randomness so tests can pin all of them.
type Engine struct {
	mu         sync.Mutex
	store      store.ChallengeStore
	notifier   store.Notifier
	now        func() time.Time
	intN       func(n int) int
	newID      func() string
	challenges []core.Challenge
}

type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the roulette draw source. f must return a uniform
// integer in [0, n).
func WithRand(f func(n int) int) Option {
	return func(e *Engine) { e.intN = f }
}

// WithIDs overrides challenge id generation.
func WithIDs(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

func New(s store.ChallengeStore, n store.Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		notifier: n,
		now:      time.Now,
		intN:     rand.IntN,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the challenge collection. There is no seed data: a fresh
// store simply has no challenges yet.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	challenges, err := e.store.ListChallenges(ctx)
	if err != nil {
		return fmt.Errorf("list challenges: %w", err)
	}
	e.challenges = challenges
	return nil
}

// kindPresentation fixes title, description, emoji and color per type,
// as the companion UI expects them.
type kindPresentation struct {
	emoji       string
	title       string
	description string
	color       string
}

var presentations = map[core.ChallengeType]kindPresentation{
	core.ChallengeStreak:   {"🔥", "Savings Streak", "Save something every day", "streak"},
	core.ChallengeNoSpend:  {"🚫", "No-Spend Challenge", "Avoid spending on specific category", "no-spend"},
	core.ChallengeFixed:    {"💵", "Fixed Amount", "Save fixed amount daily/weekly", "fixed"},
	core.ChallengeRoulette: {"🎲", "Savings Roulette", "Random amount when you spin", "roulette"},
	core.ChallengeWeeks52:  {"📅", "52 Weeks Challenge", "Week 1: $1, Week 2: $2... Week 52: $52", "weeks52"},
}

// Create builds a challenge from a type and its config, derives the
// target amount, persists it and emits a creation event.
func (e *Engine) Create(ctx context.Context, typ core.ChallengeType, cfg Config) (core.Challenge, error) {
	if !typ.Valid() {
		return core.Challenge{}, fmt.Errorf("challenge type %q: %w", typ, core.ErrNotFound)
	}
	if err := validateConfig(typ, cfg); err != nil {
		return core.Challenge{}, err
	}

	duration := cfg.Duration
	if duration <= 0 {
		duration = defaultDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	p := presentations[typ]
	c := core.Challenge{
		ID:          e.newID(),
		Type:        typ,
		Title:       p.title,
		Description: p.description,
		Emoji:       p.emoji,
		Color:       p.color,
		Status:      core.StatusActive,
		CreatedAt:   now,
		EndDate:     now.Add(time.Duration(duration) * hoursPerDay * time.Hour),
		History:     []core.Contribution{},
		Duration:    duration,
		Category:    cfg.Category,
		Frequency:   cfg.Frequency,
	}

	switch typ {
	case core.ChallengeFixed:
		freqDays := weeklyFreqDays
		if cfg.Frequency == core.FrequencyDaily {
			freqDays = 1
		}
		periods := (duration + freqDays - 1) / freqDays
		c.MinAmount = cfg.Amount
		c.Target = cfg.Amount.Mul(int64(periods))
	case core.ChallengeWeeks52:
		// Independent of any supplied duration.
		c.Target = core.Dollars(weeks52Target)
		c.EndDate = now.Add(weeks52Days * hoursPerDay * time.Hour)
		c.CurrentWeek = 1
	case core.ChallengeRoulette:
		c.MinAmount = cfg.MinAmount
		c.MaxAmount = cfg.MaxAmount
		c.Spins = cfg.Spins
		c.RemainingSpins = cfg.Spins
		c.Target = core.Money{Cents: int64(cfg.Spins) * (cfg.MinAmount.Cents + cfg.MaxAmount.Cents) / 2}
	default:
		// streak, and no-spend falling through to the same formula even
		// though it has no amount field of its own.
		min := cfg.MinAmount
		if min.Cents <= 0 {
			min = core.Dollars(defaultDailyMin)
		}
		c.MinAmount = min
		c.Target = min.Mul(int64(duration))
	}

	if err := e.store.PutChallenge(ctx, c); err != nil {
		return c, &core.StorageError{Op: "put challenge " + c.ID, Err: err}
	}
	e.challenges = append(e.challenges, c)

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyChallengeCreated,
		Title:       "New Challenge Started! 🎯",
		Description: fmt.Sprintf("Started %q - Save %s in %d days", c.Title, c.Target, duration),
		Date:        now,
	})
	return cloneChallenge(c), nil
}

func validateConfig(typ core.ChallengeType, cfg Config) error {
	switch typ {
	case core.ChallengeFixed:
		if cfg.Amount.Cents <= 0 {
			return core.ErrInvalidAmount
		}
	case core.ChallengeRoulette:
		if cfg.MinAmount.Cents <= 0 || cfg.MaxAmount.Cents < cfg.MinAmount.Cents {
			return core.ErrInvalidAmount
		}
		if cfg.Spins <= 0 {
			return fmt.Errorf("roulette needs at least one spin: %w", core.ErrInvalidAmount)
		}
	}
	return nil
}

// Contribute records a manual saving toward an active challenge and
// completes it once the target is reached.
func (e *Engine) Contribute(ctx context.Context, id string, amount core.Money, note string) (core.Challenge, error) {
	if err := amount.Validate(); err != nil {
		return core.Challenge{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.find(id)
	if err != nil {
		return core.Challenge{}, err
	}
	if c.Status != core.StatusActive {
		return core.Challenge{}, core.ErrNotActive
	}

	now := e.now()
	c.Saved = c.Saved.Add(amount)
	c.History = append(c.History, core.Contribution{Date: now, Amount: amount, Note: note})

	completed := !c.Saved.LessThan(c.Target)
	if completed {
		c.Status = core.StatusCompleted
		c.CompletedAt = &now
	}

	if err := e.store.PutChallenge(ctx, *c); err != nil {
		return cloneChallenge(*c), &core.StorageError{Op: "put challenge " + c.ID, Err: err}
	}

	if completed {
		e.notifier.Notify(ctx, core.Notification{
			Type:        core.NotifyChallengeCompleted,
			Title:       "Challenge Completed! 🏆",
			Description: fmt.Sprintf("You completed %q and saved %s!", c.Title, c.Saved),
			Amount:      &amount,
			Date:        now,
		})
	} else {
		e.notifier.Notify(ctx, core.Notification{
			Type:        core.NotifyChallengeProgress,
			Title:       "Challenge Progress",
			Description: fmt.Sprintf("Added %s to %q. Total: %s of %s", amount, c.Title, c.Saved, c.Target),
			Amount:      &amount,
			Date:        now,
		})
	}
	return cloneChallenge(*c), nil
}

// Spin draws a uniform amount in [min, max] for a roulette challenge,
// falling back to $5 and $50 when the bounds were never set. Exhausting
// the spins always completes the challenge, even when the drawn total
// missed the expected-value target.
func (e *Engine) Spin(ctx context.Context, id string) (core.Challenge, core.Money, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.find(id)
	if err != nil {
		return core.Challenge{}, core.Money{}, err
	}
	if c.Type != core.ChallengeRoulette {
		return core.Challenge{}, core.Money{}, core.ErrNotRoulette
	}
	if c.Status != core.StatusActive {
		return core.Challenge{}, core.Money{}, core.ErrNotActive
	}
	if c.RemainingSpins <= 0 {
		return core.Challenge{}, core.Money{}, core.ErrNoSpinsLeft
	}

	min := c.MinAmount.Cents
	if min <= 0 {
		min = core.Dollars(defaultMinSpin).Cents
	}
	max := c.MaxAmount.Cents
	if max <= 0 {
		max = core.Dollars(defaultMaxSpin).Cents
	}
	if max < min {
		max = min
	}
	amount := core.Money{Cents: min + int64(e.intN(int(max-min+1)))}

	now := e.now()
	c.Saved = c.Saved.Add(amount)
	c.RemainingSpins--
	c.History = append(c.History, core.Contribution{Date: now, Amount: amount, Note: "Roulette spin"})

	if c.RemainingSpins <= 0 {
		c.Status = core.StatusCompleted
		c.CompletedAt = &now
	}

	if err := e.store.PutChallenge(ctx, *c); err != nil {
		return cloneChallenge(*c), amount, &core.StorageError{Op: "put challenge " + c.ID, Err: err}
	}

	if c.Status == core.StatusCompleted {
		e.notifier.Notify(ctx, core.Notification{
			Type:        core.NotifyChallengeCompleted,
			Title:       "Challenge Completed! 🏆",
			Description: fmt.Sprintf("You completed %q and saved %s!", c.Title, c.Saved),
			Amount:      &amount,
			Date:        now,
		})
	} else {
		e.notifier.Notify(ctx, core.Notification{
			Type:        core.NotifyChallengeProgress,
			Title:       "Roulette Spin 🎲",
			Description: fmt.Sprintf("You saved %s! %d spins left", amount, c.RemainingSpins),
			Amount:      &amount,
			Date:        now,
		})
	}
	return cloneChallenge(*c), amount, nil
}

// CompleteManually marks an active challenge completed without any
// target check. Explicit user override.
func (e *Engine) CompleteManually(ctx context.Context, id string) (core.Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.find(id)
	if err != nil {
		return core.Challenge{}, err
	}
	if c.Status != core.StatusActive {
		return core.Challenge{}, core.ErrNotActive
	}

	now := e.now()
	c.Status = core.StatusCompleted
	c.CompletedAt = &now

	if err := e.store.PutChallenge(ctx, *c); err != nil {
		return cloneChallenge(*c), &core.StorageError{Op: "put challenge " + c.ID, Err: err}
	}

	e.notifier.Notify(ctx, core.Notification{
		Type:        core.NotifyChallengeCompleted,
		Title:       "Challenge Completed! 🏆",
		Description: fmt.Sprintf("You completed %q and saved %s!", c.Title, c.Saved),
		Date:        now,
	})
	return cloneChallenge(*c), nil
}

// Stats summarizes the collection for the stats bar.
type Stats struct {
	Active     int        `json:"active"`
	Completed  int        `json:"completed"`
	TotalSaved core.Money `json:"totalSaved"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	var s Stats
	for _, c := range e.challenges {
		switch c.Status {
		case core.StatusActive:
			s.Active++
		case core.StatusCompleted:
			s.Completed++
		}
		s.TotalSaved = s.TotalSaved.Add(c.Saved)
	}
	return s
}

// Challenges returns a defensive copy of the collection.
func (e *Engine) Challenges() []core.Challenge {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Challenge, len(e.challenges))
	for i, c := range e.challenges {
		out[i] = cloneChallenge(c)
	}
	return out
}

// Get returns one challenge by id.
func (e *Engine) Get(id string) (core.Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.find(id)
	if err != nil {
		return core.Challenge{}, err
	}
	return cloneChallenge(*c), nil
}

func (e *Engine) find(id string) (*core.Challenge, error) {
	for i := range e.challenges {
		if e.challenges[i].ID == id {
			return &e.challenges[i], nil
		}
	}
	slog.Debug("Challenge lookup miss", "id", id)
	return nil, fmt.Errorf("challenge %s: %w", id, core.ErrNotFound)
}

func cloneChallenge(c core.Challenge) core.Challenge {
	if c.CompletedAt != nil {
		at := *c.CompletedAt
		c.CompletedAt = &at
	}
	history := make([]core.Contribution, len(c.History))
	copy(history, c.History)
	c.History = history
	return c
}
