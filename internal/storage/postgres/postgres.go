// Package postgres provides a PostgreSQL budgets store.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"neuralbudget/internal/core"
	"neuralbudget/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

var _ ports.Store = (*Store)(nil)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// ConnString renders the config as a libpq keyword/value string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 10
	}
	return c
}

// Store keeps budgets in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b = b.Normalize()

	err := s.pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category, amount, period, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, category) DO UPDATE SET
			amount = EXCLUDED.amount,
			period = EXCLUDED.period,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at`,
		b.UserID, b.Category, b.Amount.StringFixed(2), string(b.Period),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upserting budget: %w", err)
	}

	s.logger.InfoContext(ctx, "budget saved", "id", b.ID, "user_id", b.UserID, "category", b.Category)
	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, category, amount::text, period, created_at
		FROM budgets WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, category, amount::text, period, created_at
		FROM budgets WHERE user_id = $1 AND id = $2`, userID, id)
	b, err := scanBudget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Budget{}, ports.ErrBudgetNotFound
	}
	return b, err
}

func (s *Store) DeleteBudget(ctx context.Context, userID string, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrBudgetNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, category, amount::text, spent_at
		FROM expenses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e   core.Expense
			amt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &amt, &e.Date); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("parsing expense amount %q: %w", amt, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddExpense implements ports.ExpenseWriter.
func (s *Store) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO expenses (user_id, category, amount, spent_at)
		VALUES ($1, $2, $3::numeric, $4) RETURNING id`,
		e.UserID, e.Category, e.Amount.StringFixed(2), e.Date.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting expense: %w", err)
	}
	return id, nil
}

// AddCategory implements ports.CategoryWriter.
func (s *Store) AddCategory(ctx context.Context, userID, name string) error {
	name = core.NormalizeCategory(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO categories (user_id, name) VALUES ($1, $2)
		ON CONFLICT (user_id, name) DO NOTHING`, userID, name); err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name FROM categories WHERE user_id IN ('', $1)
		GROUP BY name ORDER BY MIN(id)`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanBudget(row pgx.Row) (core.Budget, error) {
	var (
		b      core.Budget
		amt    string
		period string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Category, &amt, &period, &b.CreatedAt); err != nil {
		return core.Budget{}, err
	}
	d, err := decimal.NewFromString(amt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parsing budget amount %q: %w", amt, err)
	}
	b.Amount = d
	b.Period = core.Period(period)
	return b, nil
}
