package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"neuralbudget/internal/backend"
	"neuralbudget/internal/log"
	"neuralbudget/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := startup(log.ComponentStorage)
			if err != nil {
				return err
			}

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}

			switch bcfg.Type {
			case backend.SQLite:
				if err := storage.RunMigrations(bcfg.SQLiteDBPath); err != nil {
					return fmt.Errorf("migrate sqlite: %w", err)
				}
				version, dirty, err := storage.SchemaVersion(bcfg.SQLiteDBPath)
				if err != nil {
					return fmt.Errorf("read sqlite schema version: %w", err)
				}
				logger.Info("SQLite schema version", "version", version, "dirty", dirty)
			case backend.Postgres:
				// opening the store applies the schema
				res, err := backend.NewFactory(logger.Logger).Open(cmd.Context(), bcfg)
				if err != nil {
					return fmt.Errorf("migrate postgres: %w", err)
				}
				defer res.Close()
			default:
				logger.Info("Backend has no schema, nothing to migrate", "backend", bcfg.Type)
				return nil
			}

			logger.Info("Migrations applied", "backend", bcfg.Type)
			return nil
		},
	}
}
