package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

// autoUpDecision reports whether a process may apply pending migrations on
// boot, and why not when it may not.
func autoUpDecision(cfg *config.Config) (bool, string) {
	switch {
	case !cfg.FeatureFlags.AutoMigrate:
		return false, "auto migrate disabled"
	case !cfg.App.IsDev():
		return false, "auto migrate is dev only; run cmd/migrate"
	case cfg.DB.Driver == db.DriverSQLite:
		return false, "postgres migrations do not apply to sqlite"
	default:
		return true, ""
	}
}

// AutoUp brings the dev schema up to date before a process starts serving.
func AutoUp(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ok, reason := autoUpDecision(cfg)
	if !ok {
		if cfg.FeatureFlags.AutoMigrate {
			logg.Warn(logg.WithField(ctx, "reason", reason), "skipping auto migrate")
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "schema migrated")
	return nil
}
