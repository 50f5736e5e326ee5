// Package bootstrap owns the process wiring every binary repeats: env loading,
// config, the leveled logger, and the shared clients with their shutdown order.
package bootstrap

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/migrate"
	"github.com/angelmondragon/droppoint-backend/pkg/pubsub"
	"github.com/angelmondragon/droppoint-backend/pkg/redis"
)

type closer struct {
	name string
	c    io.Closer
}

// Runtime is one process's configuration plus the clients it opened. Close
// releases them in reverse order.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

type loadFunc func() (*config.Config, error)

// Start loads .env (when present) and the config, then rebuilds the logger at
// the configured level.
func Start(kind string) (*Runtime, error) {
	return start(kind, config.Load, os.Stdout)
}

func start(kind string, load loadFunc, out io.Writer) (*Runtime, error) {
	rt := &Runtime{
		Kind:   kind,
		Logger: logger.New(logger.Options{ServiceName: kind, Output: out}),
		exit:   os.Exit,
	}
	if err := godotenv.Load(); err != nil {
		rt.Logger.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := load()
	if err != nil {
		return rt, err
	}
	cfg.Service.Kind = kind
	rt.Config = cfg
	rt.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      out,
	})
	return rt, nil
}

func (r *Runtime) track(name string, c io.Closer) {
	r.closers = append(r.closers, closer{name: name, c: c})
}

// Database opens the primary store and applies dev migrations when enabled.
func (r *Runtime) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, r.Config.DB, r.Logger)
	if err != nil {
		return nil, err
	}
	r.track("database", client)
	if err := migrate.AutoUp(ctx, r.Config, r.Logger, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, err
	}
	r.track("redis", client)
	return client, nil
}

func (r *Runtime) PubSub(ctx context.Context, role pubsub.Role) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, r.Config.GCP, r.Config.PubSub, role, r.Logger)
	if err != nil {
		return nil, err
	}
	r.track("pubsub", client)
	return client, nil
}

// Close shuts every tracked client down, newest first, and reports all failures.
func (r *Runtime) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		entry := r.closers[i]
		if err := entry.c.Close(); err != nil {
			r.Logger.Error(r.Logger.WithField(context.Background(), "resource", entry.name), "error closing resource", err)
			errs = multierr.Append(errs, err)
		}
	}
	r.closers = nil
	return errs
}

// Must logs err, closes what was opened and exits non-zero. A nil err is a no-op.
func (r *Runtime) Must(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	r.Logger.Error(ctx, "failed to "+what, err)
	_ = r.Close()
	r.exit(1)
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// fields every log line should have.
func (r *Runtime) SignalContext(fields map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	base := map[string]any{"serviceKind": r.Kind}
	if r.Config != nil {
		base["env"] = r.Config.App.Env
	}
	for k, v := range fields {
		base[k] = v
	}
	return r.Logger.WithFields(ctx, base), stop
}
