package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	ChallengeStreak   ChallengeType = "streak"
	ChallengeNoSpend  ChallengeType = "no-spend"
	ChallengeFixed    ChallengeType = "fixed"
	ChallengeRoulette ChallengeType = "roulette"
	ChallengeWeeks52  ChallengeType = "weeks52"
)

const (
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
	StatusFailed    ChallengeStatus = "failed"
)

const (
	FrequencyDaily  = "Daily"
	FrequencyWeekly = "Weekly"
)

type (
	ChallengeType   string
	ChallengeStatus string

	// Money is an amount in cents. All arithmetic happens on cents;
	// dollars are a display concern.
	Money struct {
		Cents int64 `json:"cents"`
	}

	// Envelope is a named bucket holding part of the user's savings,
	// optionally with a target balance attached.
	Envelope struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Icon   string `json:"icon"`
		Amount Money  `json:"amount"`
		Goal   *Money `json:"goal,omitempty"`
	}

	// Goal is a standalone savings target, independent of envelopes.
	// Saved may exceed Target; there is no completion state here.
	Goal struct {
		ID     string     `json:"id"`
		Name   string     `json:"name"`
		Emoji  string     `json:"emoji"`
		Target Money      `json:"target"`
		Saved  Money      `json:"saved"`
		Date   *time.Time `json:"date,omitempty"`
	}

	// Contribution is one entry in a challenge's history.
	Contribution struct {
		Date   time.Time `json:"date"`
		Amount Money     `json:"amount"`
		Note   string    `json:"note,omitempty"`
	}

	Challenge struct {
		ID          string          `json:"id"`
		Type        ChallengeType   `json:"type"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Emoji       string          `json:"emoji"`
		Color       string          `json:"color"`
		Status      ChallengeStatus `json:"status"`
		CreatedAt   time.Time       `json:"createdAt"`
		EndDate     time.Time       `json:"endDate"`
		CompletedAt *time.Time      `json:"completedAt,omitempty"`
		Saved       Money           `json:"savedAmount"`
		Target      Money           `json:"targetAmount"`
		History     []Contribution  `json:"history"`

		// Type-specific configuration, zero where not applicable.
		Duration       int    `json:"duration,omitempty"`
		MinAmount      Money  `json:"minAmount,omitempty"`
		MaxAmount      Money  `json:"maxAmount,omitempty"`
		Frequency      string `json:"frequency,omitempty"`
		Category       string `json:"category,omitempty"`
		Spins          int    `json:"spins,omitempty"`
		RemainingSpins int    `json:"remainingSpins,omitempty"`
		CurrentWeek    int    `json:"currentWeek,omitempty"`
	}

	// Notification is one row in the append-only activity log. The
	// engines write it and never read it back for decisions.
	Notification struct {
		ID          int64     `json:"id"`
		Type        string    `json:"type"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Amount      *Money    `json:"amount,omitempty"`
		Date        time.Time `json:"date"`
		Read        bool      `json:"read"`
	}
)

// Notification types emitted by the engines.
const (
	NotifyAdd                = "add"
	NotifyWithdraw           = "withdraw"
	NotifyTransfer           = "transfer"
	NotifyGoal               = "goal"
	NotifyChallengeCreated   = "challenge_created"
	NotifyChallengeProgress  = "challenge_progress"
	NotifyChallengeCompleted = "challenge_completed"
)

var ErrEmptyName = errors.New("empty name")

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("empty envelope id")
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Amount.Cents < 0 {
		return ErrNegativeBalance
	}
	if e.Goal != nil && e.Goal.Cents <= 0 {
		return ErrInvalidGoal
	}
	return nil
}

// HasGoal reports whether the envelope carries an active savings target.
func (e Envelope) HasGoal() bool {
	return e.Goal != nil && e.Goal.Cents > 0
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("empty goal id")
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidGoal
	}
	if g.Saved.Cents < 0 {
		return ErrNegativeBalance
	}
	return nil
}

// Valid reports whether t is one of the supported challenge kinds.
func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeStreak, ChallengeNoSpend, ChallengeFixed, ChallengeRoulette, ChallengeWeeks52:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal statuses never
// transition again.
func (s ChallengeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProgressPercent returns saved/target as a percentage, capped at 100.
// A zero target is treated as one cent so the division is always defined.
func (c Challenge) ProgressPercent() float64 {
	target := c.Target.Cents
	if target < 1 {
		target = 1
	}
	p := float64(c.Saved.Cents) / float64(target) * 100
	if p > 100 {
		return 100
	}
	return p
}

// DaysLeft returns the number of days until the challenge's end date,
// rounded up. Display only: a past end date never changes the status.
func (c Challenge) DaysLeft(now time.Time) int {
	return int(math.Ceil(c.EndDate.Sub(now).Hours() / 24))
}
