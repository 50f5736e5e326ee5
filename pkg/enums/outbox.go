package enums

// OutboxAggregateType names the entity an outbox row describes.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

var aggregateTypes = newSet("aggregate type", AggregateOrder)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType is the routing key of an order event.
type OutboxEventType string

const (
	EventOrderCreated            OutboxEventType = "order.created"
	EventOrderFulfillmentChanged OutboxEventType = "order.fulfillment_changed"
	EventOrderPaymentChanged     OutboxEventType = "order.payment_changed"
	EventOrderPaymentInitiated   OutboxEventType = "order.payment_initiated"
	EventOrderPaymentSettled     OutboxEventType = "order.payment_settled"
	EventOrderPaymentExpired     OutboxEventType = "order.payment_expired"
)

var eventTypes = newSet("event type",
	EventOrderCreated,
	EventOrderFulfillmentChanged,
	EventOrderPaymentChanged,
	EventOrderPaymentInitiated,
	EventOrderPaymentSettled,
	EventOrderPaymentExpired,
)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) { return eventTypes.parse(value) }

// OutboxDLQErrorReason explains why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqReasons = newSet("dlq reason", OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable)

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
