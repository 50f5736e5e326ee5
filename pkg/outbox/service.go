package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

const uniqueEventPerAggregate = "ux_outbox_events_event_aggregate"

// DomainEvent is what the order service hands over; Data becomes the envelope body.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Service stages events in outbox_events. It never publishes; the
// outbox-publisher binary drains the table.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// stage builds the row for event. The row ID doubles as the envelope's
// event_id so consumers can dedupe on either.
func (s *Service) stage(event DomainEvent) (models.OutboxEvent, error) {
	at := event.OccurredAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	version := event.Version
	if version == 0 {
		version = EnvelopeVersion
	}

	body, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s body: %w", event.EventType, err)
	}
	staged := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		CreatedAt:     at,
	}
	staged.Payload, err = json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    staged.ID.String(),
		OccurredAt: at,
		Actor:      event.Actor,
		Data:       body,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}
	return staged, nil
}

// Emit writes the event inside tx so it commits or rolls back with the order change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	staged, err := s.stage(event)
	if err == nil {
		err = s.repo.Insert(tx, staged)
	}
	if err != nil {
		return err
	}
	s.queued(ctx, staged)
	return nil
}

func (s *Service) queued(ctx context.Context, staged models.OutboxEvent) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   staged.ID.String(),
		"event_type": staged.EventType,
		"order_id":   staged.AggregateID.String(),
	})
	s.logg.Debug(ctx, "outbox event staged")
}

// EmitIfNotExists writes at most one event of a type per order, e.g. a single
// order_created no matter how often checkout is retried. A concurrent writer
// that wins the unique index race counts as success.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	switch exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID); {
	case err != nil:
		return err
	case exists:
		return nil
	}
	if err := s.Emit(ctx, tx, event); err != nil && !dbpkg.IsUniqueViolation(err, uniqueEventPerAggregate) {
		return err
	}
	return nil
}
