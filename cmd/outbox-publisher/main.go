package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/angelmondragon/droppoint-backend/pkg/bootstrap"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/registry"
	"github.com/angelmondragon/droppoint-backend/pkg/pubsub"
)

func main() {
	rt, err := bootstrap.Start("outbox-publisher")
	if err != nil {
		fmt.Fprintln(os.Stderr, "outbox-publisher: load config:", err)
		os.Exit(1)
	}
	defer rt.Close()

	boot := context.Background()
	dbClient, err := rt.Database(boot)
	rt.Must(boot, "bootstrap database", err)
	pubsubClient, err := rt.PubSub(boot, pubsub.RolePublisher)
	rt.Must(boot, "bootstrap pubsub", err)

	routes, err := registry.NewEventRegistry(rt.Config.PubSub)
	rt.Must(boot, "build event registry", err)

	service, err := NewService(ServiceParams{
		Config:      rt.Config,
		Logger:      rt.Logger,
		DB:          dbClient,
		PubSub:      pubsubClient,
		Rows:        outbox.NewRepository(dbClient.DB()),
		Routes:      routes,
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
	})
	rt.Must(boot, "create outbox publisher", err)

	ctx, stop := rt.SignalContext(map[string]any{
		"topic":     rt.Config.PubSub.OrdersTopic,
		"batchSize": rt.Config.Outbox.BatchSize,
	})
	defer stop()
	rt.Logger.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "run outbox publisher", err)
	}
	rt.Logger.Info(ctx, "outbox publisher stopped")
}
