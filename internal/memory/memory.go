// Package memory provides a mutex-guarded in-memory implementation of
// every store port. It backs the default data backend and the engine
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"pesso/internal/core"
)

type Store struct {
	mu            sync.Mutex
	envelopes     []core.Envelope
	goals         []core.Goal
	challenges    []core.Challenge
	notifications []core.Notification
	nextNotifID   int64
}

func New() *Store {
	return &Store{nextNotifID: 1}
}

func (s *Store) ListEnvelopes(_ context.Context) ([]core.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Envelope(nil), s.envelopes...), nil
}

func (s *Store) PutEnvelope(_ context.Context, e core.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.envelopes {
		if s.envelopes[i].ID == e.ID {
			s.envelopes[i] = e
			return nil
		}
	}
	s.envelopes = append(s.envelopes, e)
	return nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals...), nil
}

func (s *Store) PutGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == g.ID {
			s.goals[i] = g
			return nil
		}
	}
	s.goals = append(s.goals, g)
	return nil
}

func (s *Store) ListChallenges(_ context.Context) ([]core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Challenge(nil), s.challenges...), nil
}

func (s *Store) PutChallenge(_ context.Context, c core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.challenges {
		if s.challenges[i].ID == c.ID {
			s.challenges[i] = c
			return nil
		}
	}
	s.challenges = append(s.challenges, c)
	return nil
}

// AppendNotification assigns the next id; callers never choose one.
func (s *Store) AppendNotification(_ context.Context, n core.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextNotifID
	s.nextNotifID++
	s.notifications = append(s.notifications, n)
	return n.ID, nil
}

// ListNotifications returns the newest entries first, up to limit
// (limit <= 0 means all).
func (s *Store) ListNotifications(_ context.Context, limit int) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Notification, 0, len(s.notifications))
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.notifications[i])
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
}
