package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

const (
	readinessAttempts = 5
	readinessBackoff  = 2 * time.Second
)

type dependency struct {
	name string
	ping func(context.Context) error
}

type consumer interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]func(context.Context) error
	Consumer     consumer
	// Backoff between readiness rounds; zero uses readinessBackoff.
	Backoff time.Duration
}

// Service supervises the feed consumer once every dependency answers.
type Service struct {
	logg     *logger.Logger
	deps     []dependency
	consumer consumer
	backoff  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	var err error
	if params.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	if params.Consumer == nil {
		err = multierr.Append(err, errors.New("consumer is required"))
	}
	for name, ping := range params.Dependencies {
		if ping == nil {
			err = multierr.Append(err, fmt.Errorf("%s ping is required", name))
		}
	}
	if err != nil {
		return nil, err
	}

	svc := &Service{logg: params.Logger, consumer: params.Consumer, backoff: params.Backoff}
	if svc.backoff <= 0 {
		svc.backoff = readinessBackoff
	}
	for _, name := range []string{"database", "redis", "pubsub"} {
		if ping, ok := params.Dependencies[name]; ok {
			svc.deps = append(svc.deps, dependency{name: name, ping: ping})
		}
	}
	for name, ping := range params.Dependencies {
		if name != "database" && name != "redis" && name != "pubsub" {
			svc.deps = append(svc.deps, dependency{name: name, ping: ping})
		}
	}
	return svc, nil
}

// waitReady retries the dependency round a few times so a worker booted next to
// a restarting redis does not crash loop.
func (s *Service) waitReady(ctx context.Context) error {
	var last error
	for attempt := 1; attempt <= readinessAttempts; attempt++ {
		if last = s.pingAll(ctx); last == nil {
			s.logg.Info(ctx, "worker dependencies ready")
			return nil
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"attempt": attempt, "reason": last.Error()}), "worker dependencies not ready")
		if attempt == readinessAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return last
}

func (s *Service) pingAll(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.consumer.Run(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err == nil {
			return errors.New("consumer returned without error")
		}
		return err
	}
}
