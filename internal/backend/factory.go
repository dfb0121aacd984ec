package backend

import (
	"context"
	"fmt"
	"log/slog"

	"neuralbudget/internal/memory"
	"neuralbudget/internal/storage"
	"neuralbudget/internal/storage/postgres"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Open implements Factory.Open.
func (f *DefaultFactory) Open(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.openSQLite(config)
	case Postgres:
		return f.openPostgres(ctx, config)
	case Memory:
		return f.openMemory(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) openPostgres(ctx context.Context, config Config) (*Result, error) {
	store, err := postgres.New(ctx, postgres.Config{
		Host:     config.PostgresHost,
		Port:     config.PostgresPort,
		Database: config.PostgresDB,
		User:     config.PostgresUser,
		Password: config.PostgresPassword,
		SSLMode:  config.PostgresSSLMode,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize PostgreSQL store: %w", err)
	}
	f.logger.Info("Initialized PostgreSQL backend", "host", config.PostgresHost, "database", config.PostgresDB)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) openMemory(config Config) *Result {
	dir := config.DataDirectory
	if dir == "" {
		dir = "data"
	}
	store := memory.NewFromFiles(dir, config.DefaultUserID)
	f.logger.Info("Initialized memory backend", "data_directory", dir, "seed_user", config.DefaultUserID)
	return &Result{Store: store}
}
