package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

const (
	defaultIntentTTL       = 24 * time.Hour
	defaultExpiryBatchSize = 200
	maxExpiryBatches       = 50
)

type intentExpirer interface {
	ExpireStaleIntents(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type PaymentIntentExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    intentExpirer
	TTL       time.Duration
	BatchSize int
}

// NewPaymentIntentExpiryJob cancels gateway orders whose payment intent
// has been outstanding for longer than TTL.
func NewPaymentIntentExpiryJob(params PaymentIntentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultIntentTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &paymentIntentExpiryJob{
		logg:  params.Logger,
		svc:   params.Orders,
		ttl:   ttl,
		batch: batch,
		now:   time.Now,
	}, nil
}

type paymentIntentExpiryJob struct {
	logg  *logger.Logger
	svc   intentExpirer
	ttl   time.Duration
	batch int
	now   func() time.Time
}

func (j *paymentIntentExpiryJob) Name() string { return "payment-intent-expiry" }

func (j *paymentIntentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	// drain in batches; a short batch means nothing stale is left
	for i := 0; i < maxExpiryBatches; i++ {
		n, err := j.svc.ExpireStaleIntents(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return fmt.Errorf("expire stale intents after %d: %w", total, err)
		}
		if n < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	})
	j.logg.Info(logCtx, "payment intent expiry complete")
	return nil
}
