package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"neuralbudget/internal/amqp"
	"neuralbudget/internal/backend"
	"neuralbudget/internal/config"
	"neuralbudget/internal/log"
	"neuralbudget/internal/ports"
	"neuralbudget/internal/sheets/google"
	"neuralbudget/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	var skipResync bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror budget events into Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := startup(log.ComponentWorker)
			if err != nil {
				return err
			}
			if err := cfg.ValidateWorker(); err != nil {
				logger.LogError(cmd.Context(), "Worker configuration invalid", err, log.OpStartup, log.NewFields())
				return err
			}
			return runWorker(cmd.Context(), cfg, logger, !skipResync)
		},
	}

	cmd.Flags().BoolVar(&skipResync, "skip-resync", false, "do not rewrite the default user's budgets on startup")

	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, logger *log.Logger, resync bool) error {
	sheets, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleBudgetsSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(log.ComponentSheets).Logger)
	if err != nil {
		return fmt.Errorf("initialize Google Sheets client: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	// the memory backend lives in the server process, so there is nothing to
	// resync from here
	var store ports.BudgetReader
	if cfg.DataBackend != string(backend.Memory) {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Open(ctx, bcfg)
		if err != nil {
			logger.Warn("Backend unavailable, resync disabled", log.FieldError, err.Error())
		} else {
			defer res.Close()
			store = res.Store
		}
	}

	w := worker.NewSyncWorker(sheets, store)
	if resync {
		if err := w.Resync(ctx, cfg.DefaultUserID); err != nil {
			logger.LogError(ctx, "Startup resync failed", err, log.OpSync, log.NewFields().WithUser(cfg.DefaultUserID))
		}
	}

	logger.Info("Consuming budget events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := client.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume budget events: %w", err)
	}
	logger.Info("Worker stopped")
	return nil
}
