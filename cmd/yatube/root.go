package main

import (
	"context"
	"fmt"
	"log/slog"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/engine"
	"yatube/internal/utils"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "yatube [command] [flags]",
	Short:         "Yatube: a small social blogging site",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app is what every subcommand needs: configuration, a logger and metrics.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *utils.MetricsCollector
}

func loadApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := utils.NewLogger(utils.LogOptions{Level: cfg.Log.Level, File: cfg.Log.File, Debug: cfg.Debug})
	return &app{cfg: cfg, logger: logger, metrics: utils.NewMetricsCollector()}, nil
}

// openDB connects the configured backend. PostgreSQL is migrated first when
// MIGRATIONS_AUTO is on.
func (a *app) openDB(ctx context.Context) (database.DBAdapter, error) {
	switch a.cfg.Database.Type {
	case config.DBTypeMemory:
		a.logger.Warn("using the in-memory store; data is lost on exit")
		return engine.NewMemoryDB(a.metrics, a.logger), nil
	default:
		db, err := a.openPostgres()
		if err != nil {
			return nil, err
		}
		if a.cfg.Database.AutoMigrate {
			if err := db.MigrationsUp(); err != nil {
				_ = db.Close(ctx)
				return nil, err
			}
		}
		return db, nil
	}
}

func (a *app) openPostgres() (*database.PostgresDB, error) {
	if a.cfg.Database.Type != config.DBTypePostgres {
		return nil, fmt.Errorf("DB_TYPE is %q, this command needs %q", a.cfg.Database.Type, config.DBTypePostgres)
	}
	return database.NewPostgresDB(a.cfg.Database, a.logger)
}
