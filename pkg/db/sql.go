package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// OpenSQL opens a bare database/sql handle for tooling such as migrations.
// Postgres goes through lib/pq; SQLite reuses the GORM bootstrap so both
// share one file handle.
func OpenSQL(ctx context.Context, cfg config.DBConfig, flags config.FeatureFlagsConfig, logg *logger.Logger) (*sql.DB, string, error) {
	driver := DriverFor(cfg, flags)
	if driver == DriverSQLite {
		client, err := New(ctx, cfg, flags, logg)
		if err != nil {
			return nil, "", err
		}
		sqlDB, err := client.DB().DB()
		if err != nil {
			return nil, "", fmt.Errorf("getting sql db handle: %w", err)
		}
		return sqlDB, driver, nil
	}

	if cfg.DSN == "" {
		return nil, "", fmt.Errorf("database DSN is required")
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("opening postgres: %w", err)
	}
	applyPoolSettings(sqlDB, cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, "", fmt.Errorf("pinging postgres: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "sql connection established")
	}
	return sqlDB, driver, nil
}
