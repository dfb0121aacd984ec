package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"neuralbudget/internal/amqp"
	"neuralbudget/internal/backend"
	"neuralbudget/internal/cache"
	"neuralbudget/internal/config"
	"neuralbudget/internal/core"
	apphttp "neuralbudget/internal/http"
	"neuralbudget/internal/log"
	"neuralbudget/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = time.Minute
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the budgets web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := startup(log.ComponentApp)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Open(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err.Error())
		}
	}()

	analyses := cache.NewLRU[string, core.Analysis](cfg.AnalysisCacheSize, cfg.AnalysisCacheTTL)
	janitor := cache.NewJanitor(janitorInterval, logger.WithComponent(log.ComponentCache).Logger, analyses)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// budgets still save; the sheet catches up on the worker's next resync
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewBudgetService(res.Store, publisher, analyses)
	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		DefaultUserID:   cfg.DefaultUserID,
		Logger:          logger,
		MaxPageSessions: cfg.MaxPageSessions,
		PageSessionTTL:  cfg.PageSessionTTL,
	}, svc)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		janitor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting neuralbudget server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}
