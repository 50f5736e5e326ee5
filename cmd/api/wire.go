package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/droppoint-backend/api/routes"
	"github.com/angelmondragon/droppoint-backend/internal/catalog"
	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/internal/payments"
	"github.com/angelmondragon/droppoint-backend/pkg/bootstrap"
	"github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/geo"
	"github.com/angelmondragon/droppoint-backend/pkg/maps"
	"github.com/angelmondragon/droppoint-backend/pkg/metrics"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/redis"
	"github.com/angelmondragon/droppoint-backend/pkg/square"
)

type services struct {
	eligibility   eligibility.Service
	geocoder      routes.Geocoder
	orders        orders.Service
	payments      payments.Service
	notifications notifications.Service
}

// wire builds the domain services behind the router. Routing and the payment
// gateway are optional: without them distances are haversine estimates and
// gateway orders are rejected.
func wire(ctx context.Context, rt *bootstrap.Runtime, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*services, error) {
	cfg, logg := rt.Config, rt.Logger
	deliveryMetrics := metrics.NewDeliveryMetrics(reg)
	app := &services{}

	var router geo.Router
	if cfg.Routing.Enabled() {
		mapsClient, err := maps.NewClient(cfg.Routing.APIKey,
			maps.WithBaseURL(cfg.Routing.BaseURL),
			maps.WithTimeout(cfg.Routing.Timeout),
		)
		if err != nil {
			return nil, err
		}
		router, app.geocoder = mapsClient, mapsClient
	} else {
		logg.Warn(ctx, "routing provider not configured, using straight-line distances")
	}

	var err error
	app.eligibility, err = eligibility.NewService(eligibility.ServiceParams{
		Repo: eligibility.NewRepository(dbClient.DB()),
		Resolver: geo.NewResolver(geo.ResolverParams{
			Router:         router,
			MaxPlausibleKm: cfg.Routing.MaxPlausibleKm,
			Timeout:        cfg.Routing.Timeout,
			Metrics:        deliveryMetrics,
			Logger:         logg,
		}),
		Metrics: deliveryMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	relay, err := notifications.NewRedisRelay(redisClient, cfg.Eventing.LiveChannel)
	if err != nil {
		return nil, err
	}
	recorder, err := orders.NewChangeRecorder(outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), relay, logg)
	if err != nil {
		return nil, err
	}
	orderRepo := orders.NewRepository(dbClient.DB())

	if gateway, gwErr := square.NewClient(ctx, cfg.Square, logg); gwErr != nil {
		logg.Warn(logg.WithField(ctx, "reason", gwErr.Error()), "payment gateway disabled, gateway orders will be rejected")
	} else {
		app.payments, err = payments.NewService(payments.ServiceParams{
			Repo:          orderRepo,
			Tx:            dbClient,
			Recorder:      recorder,
			Gateway:       gateway,
			SigningSecret: gateway.SigningSecret(),
			Logger:        logg,
		})
		if err != nil {
			return nil, err
		}
	}

	app.orders, err = orders.NewService(orders.ServiceParams{
		Repo:        orderRepo,
		Tx:          dbClient,
		Recorder:    recorder,
		Catalog:     catalog.NewLookup(dbClient.DB()),
		Eligibility: app.eligibility,
		Payments:    app.payments,
		Currency:    cfg.Square.Currency,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	app.notifications, err = notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	return app, nil
}
