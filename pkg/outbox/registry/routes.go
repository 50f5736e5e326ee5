package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

// ErrPoison marks an outbox row that can never be published as stored.
// Retrying it only delays the dead letter.
var ErrPoison = errors.New("poison outbox event")

// Poison wraps err so IsPoison reports true for it.
func Poison(err error) error {
	if err == nil {
		return ErrPoison
	}
	return fmt.Errorf("%w: %w", ErrPoison, err)
}

func IsPoison(err error) bool {
	return errors.Is(err, ErrPoison)
}

// Route is where one event type goes.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is a row that passed validation, with its decoded body.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Event    payloads.OrderChangedEvent
}

// EventRegistry maps order event types to their topic and decodes rows before
// they are published.
type EventRegistry struct {
	routes  map[enums.OutboxEventType]Route
	decoder *OrderEventDecoder
}

var orderEvents = []enums.OutboxEventType{
	enums.EventOrderCreated,
	enums.EventOrderFulfillmentChanged,
	enums.EventOrderPaymentChanged,
	enums.EventOrderPaymentInitiated,
	enums.EventOrderPaymentSettled,
	enums.EventOrderPaymentExpired,
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{
		routes:  make(map[enums.OutboxEventType]Route, len(orderEvents)),
		decoder: NewOrderEventDecoder(),
	}
	for _, eventType := range orderEvents {
		reg.routes[eventType] = Route{EventType: eventType, AggregateType: enums.AggregateOrder, Topic: cfg.OrdersTopic}
	}
	return reg, nil
}

// Topics lists the distinct destinations, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, route := range r.routes {
		if !slices.Contains(topics, route.Topic) {
			topics = append(topics, route.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks the row's routing columns and decodes the stored envelope.
// Every failure is poison.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Poison(fmt.Errorf("unsupported event type %s", row.EventType))
	case route.AggregateType != row.AggregateType:
		return nil, Poison(fmt.Errorf("aggregate mismatch: expected %s got %s", route.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Poison(errors.New("missing aggregate_id"))
	}

	envelope, event, err := r.decoder.Decode(row.Payload, row.EventType)
	if err != nil {
		return nil, Poison(err)
	}
	if event.Type != row.EventType {
		return nil, Poison(fmt.Errorf("payload type %s does not match row type %s", event.Type, row.EventType))
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Event: event}, nil
}
