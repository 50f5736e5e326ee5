package notifications

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/registry"
)

const feedConsumer = "order-feed"

type verdict int

const (
	ack verdict = iota
	nack
)

// Consumer turns published order events into feed rows, once per (order, status).
type Consumer struct {
	repo    Repository
	sub     *pubsub.Subscriber
	dedupe  *idempotency.Manager
	decoder *registry.OrderEventDecoder
	logg    *logger.Logger
}

func NewConsumer(repo Repository, sub *pubsub.Subscriber, dedupe *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	var err error
	if repo == nil {
		err = multierr.Append(err, errors.New("notifications repository required"))
	}
	if sub == nil {
		err = multierr.Append(err, errors.New("notification subscription required"))
	}
	if dedupe == nil {
		err = multierr.Append(err, errors.New("idempotency manager required"))
	}
	if logg == nil {
		err = multierr.Append(err, errors.New("logger required"))
	}
	if err != nil {
		return nil, err
	}
	return &Consumer{repo: repo, sub: sub, dedupe: dedupe, decoder: registry.NewOrderEventDecoder(), logg: logg}, nil
}

// Run receives until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process acks everything it can never handle (unknown types, bad payloads,
// rows storage rejects) and nacks only transient failures.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) verdict {
	raw := msg.Attributes["event_type"]
	ctx = c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID, "event_type": raw})

	eventType, err := enums.ParseOutboxEventType(raw)
	if err != nil || eventType == enums.EventOrderPaymentInitiated {
		c.logg.Debug(ctx, "skipping event without feed entry")
		return ack
	}
	envelope, event, err := c.decoder.Decode(msg.Data, eventType)
	if err != nil {
		c.logg.Error(ctx, "failed to decode order event", err)
		return ack
	}

	orderID, state := event.Order.ID, StatusKey(event.Order)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"event_id": envelope.EventID,
		"status":   state,
	})

	seen, err := c.dedupe.CheckAndMarkState(ctx, feedConsumer, orderID, state)
	switch {
	case err != nil:
		c.logg.Error(ctx, "idempotency check failed", err)
		return nack
	case seen:
		c.logg.Info(ctx, "order state already in feed")
		return ack
	}

	err = c.repo.CreateBatch(ctx, BuildFeedRows(event))
	switch {
	case err == nil:
		c.logg.Info(ctx, "order feed updated")
		return ack
	case !pkgerrors.Retryable(err):
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping feed entry rejected by storage")
		return ack
	default:
		c.logg.Error(ctx, "notification write failed", err)
		// release the mark so the redelivery can write the rows
		if delErr := c.dedupe.DeleteState(ctx, feedConsumer, orderID, state); delErr != nil {
			c.logg.Error(ctx, "failed to release idempotency mark", delErr)
		}
		return nack
	}
}
