package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	marks   map[string]time.Duration
	deleted []string
	err     error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{marks: map[string]time.Duration{}}
}

func (s *recordingStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.marks[key]; ok {
		return false, nil
	}
	s.marks[key] = ttl
	return true, nil
}

func (s *recordingStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.marks, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

func (s *recordingStore) IdempotencyKey(scope, id string) string {
	return "dp:idempotency:" + scope + ":" + id
}

func TestCheckAndMarkState(t *testing.T) {
	store := newRecordingStore()
	manager, err := NewManager(store, 30*24*time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	orderID := uuid.New()
	key := "dp:idempotency:state:notifications:" + orderID.String() + ":confirmed/pending"

	seen, err := manager.CheckAndMarkState(ctx, "notifications", orderID, "confirmed/pending")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 30*24*time.Hour, store.marks[key])

	seen, err = manager.CheckAndMarkState(ctx, "notifications", orderID, "confirmed/pending")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = manager.CheckAndMarkState(ctx, "other-consumer", orderID, "confirmed/pending")
	require.NoError(t, err)
	assert.False(t, seen, "marks are per consumer")
}

func TestDeleteStateAllowsRetry(t *testing.T) {
	store := newRecordingStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	orderID := uuid.New()
	_, err = manager.CheckAndMarkState(ctx, "notifications", orderID, "pending/pending")
	require.NoError(t, err)

	require.NoError(t, manager.DeleteState(ctx, "notifications", orderID, "pending/pending"))
	assert.Len(t, store.deleted, 1)

	seen, err := manager.CheckAndMarkState(ctx, "notifications", orderID, "pending/pending")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestIncompleteMarksRejected(t *testing.T) {
	manager, err := NewManager(newRecordingStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.CheckAndMarkState(ctx, "", uuid.New(), "s")
	assert.ErrorIs(t, err, errIncompleteMark)
	_, err = manager.CheckAndMarkState(ctx, "c", uuid.Nil, "s")
	assert.ErrorIs(t, err, errIncompleteMark)
	assert.ErrorIs(t, manager.DeleteState(ctx, "c", uuid.New(), " "), errIncompleteMark)
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkState(context.Background(), "c", uuid.New(), "s")
	assert.EqualError(t, err, "redis down")
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.ErrorIs(t, err, errStoreRequired)
	_, err = NewManager(newRecordingStore(), -time.Second)
	assert.ErrorIs(t, err, errNegativeTTL)
}
