package main

import (
	"log/slog"

	"github.com/edgard/roastme/internal/config"
	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/logger"
)

// runMigrate applies pending schema migrations to the configured database.
func runMigrate(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)

	status, err := database.Migrate(db.DB, cfg.Database.Path)
	if err != nil {
		log.Error("Failed to migrate database", "path", cfg.Database.Path, "error", err)
		return err
	}

	if status.Applied {
		log.Info("Database migrated", "path", cfg.Database.Path, "schema_version", status.Version)
	} else {
		log.Info("Database is up to date", "path", cfg.Database.Path, "schema_version", status.Version)
	}
	return nil
}
