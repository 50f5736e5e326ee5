package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleStore struct {
	keys map[string]bool
}

func (s *exampleStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *exampleStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "dp:idempotency:" + scope + ":" + id
}

// Redelivered or duplicated order events collapse onto one feed entry per state.
func ExampleManager_CheckAndMarkState() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{keys: map[string]bool{}}, 30*24*time.Hour)
	orderID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	for _, state := range []string{"confirmed/pending", "confirmed/pending", "confirmed/paid"} {
		seen, _ := manager.CheckAndMarkState(ctx, "order-feed", orderID, state)
		fmt.Printf("%s seen=%v\n", state, seen)
	}
	// Output:
	// confirmed/pending seen=false
	// confirmed/pending seen=true
	// confirmed/paid seen=false
}
