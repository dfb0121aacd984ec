package postgres

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralbudget/internal/core"
	"neuralbudget/internal/ports"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "db", User: "u", Password: "p", Database: "budgets"}.withDefaults()

	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 10, cfg.MaxPoolSize)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=budgets sslmode=disable", cfg.ConnString())
}

func TestNew_ConnectionFailure(t *testing.T) {
	cfg := Config{
		Host:     "nonexistent-host.invalid",
		Database: "budgets",
		User:     "budgets",
		Password: "password",
	}
	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	assert.Error(t, err)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("TEST_POSTGRES_HOST not set, skipping integration test")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT"))
	return Config{
		Host:     host,
		Port:     port,
		Database: os.Getenv("TEST_POSTGRES_DB"),
		User:     os.Getenv("TEST_POSTGRES_USER"),
		Password: os.Getenv("TEST_POSTGRES_PASSWORD"),
	}
}

func TestStore_BudgetLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer store.Close()

	user := "it-" + strconv.FormatInt(int64(os.Getpid()), 10)
	b, err := store.SetBudget(ctx, core.Budget{UserID: user, Category: "Travel", Amount: decimal.RequireFromString("300.50")})
	require.NoError(t, err)
	assert.Equal(t, "travel", b.Category)

	got, err := store.GetBudget(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.5", got.Amount.String())

	require.NoError(t, store.DeleteBudget(ctx, user, b.ID))
	assert.ErrorIs(t, store.DeleteBudget(ctx, user, b.ID), ports.ErrBudgetNotFound)
}

func TestStore_ExpensesAndCategories(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer store.Close()

	user := "it-exp-" + strconv.FormatInt(int64(os.Getpid()), 10)
	id, err := store.AddExpense(ctx, core.Expense{UserID: user, Category: "travel", Amount: decimal.RequireFromString("42.10")})
	require.NoError(t, err)
	assert.NotZero(t, id)

	exps, err := store.ListExpenses(ctx, user)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "42.1", exps[0].Amount.String())

	require.NoError(t, store.AddCategory(ctx, user, " Pet_Care "))
	require.NoError(t, store.AddCategory(ctx, user, "pet_care"))
	assert.ErrorIs(t, store.AddCategory(ctx, user, ""), core.ErrEmptyCategory)

	cats, err := store.ListCategories(ctx, user)
	require.NoError(t, err)
	assert.Contains(t, cats, "pet_care")
}
