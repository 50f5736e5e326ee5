package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxEvents)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	userID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: userID, Role: enums.ActorRoleCustomer},
			Data:          map[string]string{"hello": "world"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)

	envelope, err := ParseEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, rows[0].ID.String(), envelope.EventID)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, userID, envelope.Actor.UserID)
	assert.Equal(t, enums.ActorRoleCustomer, envelope.Actor.Role)
	assert.JSONEq(t, `{"hello":"world"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxEvents)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxEvents)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOrderPaymentExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          map[string]string{"id": orderID.String()},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxEvents)
	repo := NewRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		require.NoError(t, repo.Insert(db, models.OutboxEvent{
			ID:            id,
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ids[0], rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(db, ids[0]))
	var published models.OutboxEvent
	require.NoError(t, db.First(&published, "id = ?", ids[0]).Error)
	assert.True(t, published.Published())
	require.NoError(t, repo.MarkFailedTx(db, ids[1], errors.New("publish failed")))
	require.NoError(t, repo.MarkTerminalTx(db, ids[2], errors.New("bad payload")))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "publish failed", *rows[0].LastError)

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestDLQRepositoryInsertAndCount(t *testing.T) {
	db := dbtest.Open(t, dbtest.OutboxDLQ)
	repo := NewDLQRepository(db)
	eventID := uuid.New()
	msg := strings.Repeat("x", maxErrorText-1) + "é tail"

	require.NoError(t, repo.InsertTx(db, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}))
	require.ErrorIs(t, repo.InsertTx(nil, models.OutboxDLQ{}), errTxRequired)

	var stored models.OutboxDLQ
	require.NoError(t, db.First(&stored, "event_id = ?", eventID).Error)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxErrorText-1, "split rune is dropped")
	assert.True(t, utf8.ValidString(*stored.ErrorMessage))

	counts, err := repo.CountByReasonSince(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[enums.OutboxDLQReasonMaxAttempts])
	assert.Zero(t, counts[enums.OutboxDLQReasonNonRetryable])

	later, err := repo.CountByReasonSince(context.Background(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestParseEnvelopeRejectsEmptyData(t *testing.T) {
	for _, raw := range []string{`{"version":1,"eventId":"e1"}`, `{"version":1,"data":null}`, `{"data":   }`} {
		_, err := ParseEnvelope([]byte(raw))
		assert.Error(t, err, raw)
	}
	_, err := ParseEnvelope([]byte(`{"version":1,"data":{}}`))
	assert.NoError(t, err)

	_, err = ParseEnvelope([]byte(`{"version":1}`))
	assert.ErrorIs(t, err, ErrEmptyEnvelopeData)
}
