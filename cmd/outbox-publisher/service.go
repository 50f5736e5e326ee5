package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type txSource interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// rowStore is the publisher's view of outbox_events; every call runs inside
// the batch transaction.
type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type routeResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          txSource
	PubSub      topicSource
	Rows        rowStore
	Routes      routeResolver
	DeadLetters deadLetterStore
	// Publishers overrides topic lookup on PubSub; tests inject fakes here.
	Publishers func(topic string) publisher
}

func (p ServiceParams) validate() error {
	var errs error
	for what, missing := range map[string]bool{
		"config":          p.Config == nil,
		"logger":          p.Logger == nil,
		"database client": p.DB == nil,
		"pubsub client":   p.PubSub == nil,
		"outbox rows":     p.Rows == nil,
		"event routes":    p.Routes == nil,
		"dead letters":    p.DeadLetters == nil,
	} {
		if missing {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", what))
		}
	}
	return errs
}

// Service moves committed order events from outbox_events onto Pub/Sub.
type Service struct {
	logg         *logger.Logger
	tx           txSource
	topics       topicSource
	rows         rowStore
	routes       routeResolver
	deadLetters  deadLetterStore
	publisherFor func(topic string) publisher

	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	outboxCfg := params.Config.Outbox
	s := &Service{
		logg:         params.Logger,
		tx:           params.DB,
		topics:       params.PubSub,
		rows:         params.Rows,
		routes:       params.Routes,
		deadLetters:  params.DeadLetters,
		publisherFor: params.Publishers,
		batchSize:    positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		poll:         defaultPoll,
	}
	if outboxCfg.PollIntervalMS > 0 {
		s.poll = time.Duration(outboxCfg.PollIntervalMS) * time.Millisecond
	}
	if s.publisherFor == nil {
		s.publisherFor = func(topic string) publisher {
			return wrapGCPPublisher(s.topics.Publisher(topic))
		}
	}
	return s, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// ready fails fast when a dependency is down at startup; the process
// supervisor restarts us.
func (s *Service) ready(ctx context.Context) error {
	if err := s.tx.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.topics.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled. Empty polls wait one interval; failed
// batches back off exponentially up to maxIdleBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		s.logg.Error(ctx, "outbox publisher dependencies unavailable", err)
		return err
	}

	wait := s.poll
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		drained, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case drained:
			wait = s.poll
			continue
		default:
			wait = s.poll
		}

		if err := sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
}

// processBatch claims one batch under a row lock and dispatches every event in
// it. It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var claimed int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := s.rows.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(batch)
		for _, row := range batch {
			if err := s.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed > 0, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

var errNilPublishResult = errors.New("publish result is nil")
