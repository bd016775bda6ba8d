package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/taskrent-backend/pkg/config"
	"github.com/angelmondragon/taskrent-backend/pkg/db"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at startup when running in dev
// with TASKRENT_AUTO_MIGRATE set. Postgres goes through goose, sqlite
// through AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "driver": client.Driver()})

	if client.Driver() == db.DriverSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		return AutoMigrate(ctx, client)
	}

	conn, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	logg.Info(ctx, "running goose migrations")
	if err := Run(ctx, conn, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
