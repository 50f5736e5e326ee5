package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LiveNotifier relays committed order changes to connected viewers.
type LiveNotifier interface {
	Publish(ctx context.Context, event payloads.OrderChangedEvent) error
}

// ChangeRecorder writes order change events to the outbox inside the mutating
// transaction and relays them to live viewers once the transaction commits.
type ChangeRecorder struct {
	outbox outboxPublisher
	live   LiveNotifier
	logg   *logger.Logger
}

// NewChangeRecorder builds a recorder. live may be nil when no viewer relay runs.
func NewChangeRecorder(outbox outboxPublisher, live LiveNotifier, logg *logger.Logger) (*ChangeRecorder, error) {
	if outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &ChangeRecorder{outbox: outbox, live: live, logg: logg}, nil
}

// Record queues the event in tx and returns the payload for Broadcast.
func (r *ChangeRecorder) Record(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order models.Order, actor Actor) (payloads.OrderChangedEvent, error) {
	return r.record(ctx, tx, eventType, order, actor, false)
}

// RecordOnce is Record but skips the write when the order already has an event of this type.
func (r *ChangeRecorder) RecordOnce(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order models.Order, actor Actor) (payloads.OrderChangedEvent, error) {
	return r.record(ctx, tx, eventType, order, actor, true)
}

func (r *ChangeRecorder) record(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order models.Order, actor Actor, once bool) (payloads.OrderChangedEvent, error) {
	payload := payloads.OrderChangedEvent{Type: eventType, Order: payloads.NewOrderView(order)}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data:          payload,
	}
	var err error
	if once {
		err = r.outbox.EmitIfNotExists(ctx, tx, event)
	} else {
		err = r.outbox.Emit(ctx, tx, event)
	}
	return payload, err
}

// Broadcast pushes committed changes to live viewers. Failures are logged only;
// the outbox remains the durable record.
func (r *ChangeRecorder) Broadcast(ctx context.Context, events ...payloads.OrderChangedEvent) {
	if r == nil || r.live == nil {
		return
	}
	for _, event := range events {
		if err := r.live.Publish(ctx, event); err != nil && r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"order_id":   event.Order.ID.String(),
				"event_type": event.Type,
			})
			r.logg.Error(logCtx, "live order relay failed", err)
		}
	}
}
