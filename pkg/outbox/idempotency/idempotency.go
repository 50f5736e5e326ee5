// Package idempotency remembers which order states a consumer has already
// acted on. Pub/Sub delivers at least once and two events can announce the
// same state, so consumers dedupe on (order, state) rather than message id.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the subset of the redis client the manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errStoreRequired  = errors.New("idempotency store is required")
	errNegativeTTL    = errors.New("ttl must be non-negative")
	errIncompleteMark = errors.New("consumer, aggregate id and state are required")
)

// Manager marks (consumer, aggregate, state) triples in redis. A zero TTL
// keeps marks forever.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errStoreRequired
	case ttl < 0:
		return nil, errNegativeTTL
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkState reports whether the state was already marked, marking it
// when it was not.
func (m *Manager) CheckAndMarkState(ctx context.Context, consumer string, aggregateID uuid.UUID, state string) (bool, error) {
	key, err := m.key(consumer, aggregateID, state)
	if err != nil {
		return false, err
	}
	fresh, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// DeleteState forgets a mark so a failed handler can be retried.
func (m *Manager) DeleteState(ctx context.Context, consumer string, aggregateID uuid.UUID, state string) error {
	key, err := m.key(consumer, aggregateID, state)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, aggregateID uuid.UUID, state string) (string, error) {
	consumer, state = strings.TrimSpace(consumer), strings.TrimSpace(state)
	if consumer == "" || state == "" || aggregateID == uuid.Nil {
		return "", errIncompleteMark
	}
	return m.store.IdempotencyKey("state:"+consumer, aggregateID.String()+":"+state), nil
}
