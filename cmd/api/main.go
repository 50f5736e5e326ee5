package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/droppoint-backend/api/routes"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/pkg/bootstrap"
	"github.com/angelmondragon/droppoint-backend/pkg/env"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	rt, err := bootstrap.Start("api")
	if err != nil {
		fmt.Fprintln(os.Stderr, "api: load config:", err)
		os.Exit(1)
	}
	defer rt.Close()

	boot := context.Background()
	dbClient, err := rt.Database(boot)
	rt.Must(boot, "bootstrap database", err)
	redisClient, err := rt.Redis(boot)
	rt.Must(boot, "bootstrap redis", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := wire(boot, rt, dbClient, redisClient, registry)
	rt.Must(boot, "wire services", err)

	addr := env.ListenAddr(rt.Config.App.Port)
	ctx, stop := rt.SignalContext(map[string]any{
		"addr":     addr,
		"instance": env.InstanceID(),
	})
	defer stop()

	hub := notifications.NewHub(rt.Config.Stream.SessionBuffer, rt.Logger)
	liveSub, err := redisClient.Subscribe(ctx, rt.Config.Eventing.LiveChannel)
	rt.Must(ctx, "subscribe to live channel", err)
	go func() {
		if err := hub.Run(ctx, liveSub); err != nil && !errors.Is(err, context.Canceled) {
			rt.Logger.Error(ctx, "live hub stopped", err)
		}
	}()

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			rt.Config,
			rt.Logger,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			app.eligibility,
			app.geocoder,
			app.orders,
			app.payments,
			app.notifications,
			hub,
		),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		drain, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(drain); err != nil {
			rt.Logger.Error(drain, "api server shutdown failed", err)
		}
	}()

	rt.Logger.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rt.Must(ctx, "serve http", err)
	}
	rt.Logger.Info(ctx, "api server stopped")
}
