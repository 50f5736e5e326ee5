package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/droppoint-backend/internal/catalog"
	"github.com/angelmondragon/droppoint-backend/internal/cron"
	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/pkg/bootstrap"
	"github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/geo"
	"github.com/angelmondragon/droppoint-backend/pkg/metrics"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/redis"
)

func main() {
	rt, err := bootstrap.Start("cron-worker")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cron-worker: load config:", err)
		os.Exit(1)
	}
	defer rt.Close()
	cfg := rt.Config

	boot := context.Background()
	dbClient, err := rt.Database(boot)
	rt.Must(boot, "bootstrap database", err)
	redisClient, err := rt.Redis(boot)
	rt.Must(boot, "bootstrap redis", err)

	lifecycle, err := expiryLifecycle(rt, dbClient, redisClient)
	rt.Must(boot, "create orders service", err)

	expiry, err := cron.NewPaymentIntentExpiryJob(cron.PaymentIntentExpiryJobParams{
		Logger:    rt.Logger,
		Orders:    lifecycle,
		TTL:       cfg.Delivery.PaymentIntentTTL,
		BatchSize: cfg.Delivery.ExpiryBatchSize,
	})
	rt.Must(boot, "create payment intent expiry job", err)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     rt.Logger,
		Repository: outbox.NewRepository(dbClient.DB()),
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	rt.Must(boot, "create outbox retention job", err)

	jobs, err := cron.NewRegistry(expiry, retention)
	rt.Must(boot, "register cron jobs", err)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+env), cfg.Cron.LockTTL)
	rt.Must(boot, "create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     rt.Logger,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	rt.Must(boot, "create cron service", err)

	ctx, stop := rt.SignalContext(map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"jobs":     jobs.Names(),
	})
	defer stop()
	rt.Logger.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "run cron worker", err)
	}
	rt.Logger.Info(ctx, "cron worker stopped")
}

// expiryLifecycle builds an orders service that can only expire intents: no
// gateway is attached and distances stay straight-line.
func expiryLifecycle(rt *bootstrap.Runtime, dbClient *db.Client, redisClient *redis.Client) (orders.Service, error) {
	quotes, err := eligibility.NewService(eligibility.ServiceParams{
		Repo:     eligibility.NewRepository(dbClient.DB()),
		Resolver: geo.NewResolver(geo.ResolverParams{Logger: rt.Logger}),
		Logger:   rt.Logger,
	})
	if err != nil {
		return nil, err
	}
	relay, err := notifications.NewRedisRelay(redisClient, rt.Config.Eventing.LiveChannel)
	if err != nil {
		return nil, err
	}
	recorder, err := orders.NewChangeRecorder(outbox.NewService(outbox.NewRepository(dbClient.DB()), rt.Logger), relay, rt.Logger)
	if err != nil {
		return nil, err
	}
	return orders.NewService(orders.ServiceParams{
		Repo:        orders.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Recorder:    recorder,
		Catalog:     catalog.NewLookup(dbClient.DB()),
		Eligibility: quotes,
		Currency:    rt.Config.Square.Currency,
		Logger:      rt.Logger,
	})
}
