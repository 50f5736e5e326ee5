package main

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

type consumerFunc func(context.Context) error

func (f consumerFunc) Run(ctx context.Context) error { return f(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func ok(context.Context) error { return nil }

func TestRunGivesUpWhenDependencyStaysDown(t *testing.T) {
	var started atomic.Bool
	svc, err := NewService(ServiceParams{
		Logger: quietLogger(),
		Dependencies: map[string]func(context.Context) error{
			"database": func(context.Context) error { return errors.New("connection refused") },
			"redis":    ok,
		},
		Consumer: consumerFunc(func(ctx context.Context) error {
			started.Store(true)
			return nil
		}),
		Backoff: time.Millisecond,
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "database ping failed")
	require.False(t, started.Load())
}

func TestRunRetriesUntilReady(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger: quietLogger(),
		Dependencies: map[string]func(context.Context) error{
			"redis": func(context.Context) error {
				if calls.Add(1) < 3 {
					return errors.New("LOADING")
				}
				return nil
			},
		},
		Consumer: consumerFunc(func(context.Context) error { return boom }),
		Backoff:  time.Millisecond,
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Run(context.Background()), boom)
	require.EqualValues(t, 3, calls.Load())
}

func TestRunHonorsCancellation(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:       quietLogger(),
		Dependencies: map[string]func(context.Context) error{"pubsub": ok},
		Consumer:     consumerFunc(blockUntilDone),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestRunTreatsCleanConsumerExitAsFailure(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Consumer: consumerFunc(func(context.Context) error { return nil }),
	})
	require.NoError(t, err)
	require.ErrorContains(t, svc.Run(context.Background()), "without error")
}

func TestNewServiceReportsEveryMissingParam(t *testing.T) {
	_, err := NewService(ServiceParams{
		Dependencies: map[string]func(context.Context) error{"redis": nil},
	})
	require.ErrorContains(t, err, "logger is required")
	require.ErrorContains(t, err, "consumer is required")
	require.ErrorContains(t, err, "redis ping is required")
}

func TestDependenciesPingInFixedOrder(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Logger: quietLogger(),
		Dependencies: map[string]func(context.Context) error{
			"pubsub": ok, "database": ok, "redis": ok,
		},
		Consumer: consumerFunc(blockUntilDone),
	})
	require.NoError(t, err)

	names := make([]string, 0, len(svc.deps))
	for _, dep := range svc.deps {
		names = append(names, dep.name)
	}
	require.Equal(t, []string{"database", "redis", "pubsub"}, names)
}
