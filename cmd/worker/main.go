package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/pkg/bootstrap"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/droppoint-backend/pkg/pubsub"
)

func main() {
	rt, err := bootstrap.Start("worker")
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker: load config:", err)
		os.Exit(1)
	}
	defer rt.Close()

	boot := context.Background()
	dbClient, err := rt.Database(boot)
	rt.Must(boot, "bootstrap database", err)
	redisClient, err := rt.Redis(boot)
	rt.Must(boot, "bootstrap redis", err)
	pubsubClient, err := rt.PubSub(boot, pubsub.RoleSubscriber)
	rt.Must(boot, "bootstrap pubsub", err)

	dedupe, err := idempotency.NewManager(redisClient, rt.Config.Eventing.OutboxIdempotencyTTL)
	rt.Must(boot, "build idempotency manager", err)

	feed, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		dedupe,
		rt.Logger,
	)
	rt.Must(boot, "build notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger: rt.Logger,
		Dependencies: map[string]func(context.Context) error{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
		Consumer: feed,
	})
	rt.Must(boot, "create worker service", err)

	ctx, stop := rt.SignalContext(map[string]any{
		"subscription": rt.Config.PubSub.NotificationSubscription,
	})
	defer stop()
	rt.Logger.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "run worker", err)
	}
	rt.Logger.Info(ctx, "worker stopped")
}
