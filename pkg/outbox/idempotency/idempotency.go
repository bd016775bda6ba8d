package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the redis surface the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Guard records which outbox events a publisher instance has handed to
// Pub/Sub. Marks live under tr:idempotency:handoff:<consumer>:<event_id>
// and hold the instance name so only that instance can clear them.
type Guard struct {
	store Store
	owner string
	ttl   time.Duration
}

// NewGuard keeps marks for ttl; zero keeps them until cleared.
func NewGuard(store Store, owner string, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("guard store is required")
	}
	if owner == "" {
		return nil, errors.New("guard owner is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, owner: owner, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports whether the event was already handed off,
// marking it otherwise.
func (g *Guard) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, g.owner, g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Forget clears this instance's mark after a failed publish so the retry is
// not mistaken for a duplicate.
func (g *Guard) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	_, err = g.store.CompareAndDelete(ctx, key, g.owner)
	return err
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("handoff:"+consumer, eventID.String()), nil
}
