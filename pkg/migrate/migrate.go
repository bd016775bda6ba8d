package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/taskrent-backend/pkg/db"
	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
)

// DefaultDir holds the Postgres schema for wallets, orders, tickets and the outbox.
const DefaultDir = "pkg/migrate/migrations"

// ErrSQLiteUnsupported is returned for goose commands against a sqlite database.
var ErrSQLiteUnsupported = errors.New("goose migrations target postgres; sqlite schemas are auto-migrated")

// Run executes a goose command that needs a connection.
func Run(ctx context.Context, conn *sql.DB, dir string, command string, args ...string) error {
	if conn == nil {
		return errors.New("db is required")
	}
	if dir == "" {
		return errors.New("dir is required")
	}
	if err := goose.SetDialect(db.DriverPostgres); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, conn, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// ToVersion moves the schema up or down until it sits at target.
func ToVersion(ctx context.Context, conn *sql.DB, dir string, target string) error {
	if target == "" {
		return errors.New("target version is required")
	}
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	if err := goose.SetDialect(db.DriverPostgres); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersion(conn)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		if err := goose.UpToContext(ctx, conn, dir, version); err != nil {
			return fmt.Errorf("goose up-to %d: %w", version, err)
		}
	case current > version:
		if err := goose.DownToContext(ctx, conn, dir, version); err != nil {
			return fmt.Errorf("goose down-to %d: %w", version, err)
		}
	}
	return nil
}

// AutoMigrate creates the tables from the gorm models. Only used for sqlite.
func AutoMigrate(ctx context.Context, client *db.Client) error {
	if client == nil {
		return errors.New("db client is required")
	}
	if client.Driver() != db.DriverSQLite {
		return fmt.Errorf("auto-migrate is only supported for sqlite, got %s", client.Driver())
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("sqlite auto-migrate: %w", err)
	}
	return nil
}
