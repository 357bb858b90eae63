package main

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/logger"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Store.Driver != store.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=postgres, got %q", cfg.Store.Driver)
			}

			log, err := logger.New(cfg.Log, cfg.App)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := database.Migrate(db, log); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
