package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidGoal     = errors.New("invalid goal amount")
	ErrNegativeBalance = errors.New("negative balance")
	ErrSameEnvelope    = errors.New("cannot transfer to the same envelope")
	ErrNotFound        = errors.New("not found")
	ErrNotActive       = errors.New("challenge is not active")
	ErrNotRoulette     = errors.New("not a roulette challenge")
	ErrNoSpinsLeft     = errors.New("no spins remaining")
)

// InsufficientFundsError declines a withdrawal or transfer that exceeds
// the envelope's balance. It carries both figures for display.
type InsufficientFundsError struct {
	EnvelopeName string
	Available    Money
	Attempted    Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %s, attempted %s",
		e.EnvelopeName, e.Available, e.Attempted)
}

// GoalWarning is not a failure: the withdrawal is valid but would leave
// the envelope below its active goal, so it needs explicit confirmation.
// It travels as an error so callers can errors.As it at the boundary.
type GoalWarning struct {
	EnvelopeID string
	Goal       Money
	Balance    Money
	Attempted  Money
}

func (w *GoalWarning) Error() string {
	return fmt.Sprintf("withdrawal of %s needs confirmation: balance %s is below the %s goal",
		w.Attempted, w.Balance, w.Goal)
}

// StorageError marks a persistence failure that happened after the
// in-memory mutation was applied. Memory is not rolled back; the caller
// is told the save failed and the figures may disagree until the next
// successful write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
