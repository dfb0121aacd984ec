package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralbudget/internal/core"
	"neuralbudget/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budgets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgets.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.NoError(t, RunMigrations(path))

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestSchemaVersionOfEmptyDatabase(t *testing.T) {
	version, dirty, err := SchemaVersion(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
}

func TestSetBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.SetBudget(ctx, core.Budget{UserID: "u1", Category: "Groceries", Amount: decimal.RequireFromString("500.25")})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "groceries", first.Category)
	assert.Equal(t, core.Monthly, first.Period)

	second, err := repo.SetBudget(ctx, core.Budget{UserID: "u1", Category: "groceries", Amount: decimal.NewFromInt(600), Period: core.Weekly})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := repo.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "600", list[0].Amount.String())
	assert.Equal(t, core.Weekly, list[0].Period)
	assert.False(t, list[0].CreatedAt.IsZero())

	other, err := repo.ListBudgets(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSetBudgetRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.SetBudget(context.Background(), core.Budget{UserID: "u1", Category: "rent", Amount: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestGetAndDeleteBudget(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.SetBudget(ctx, core.Budget{UserID: "u1", Category: "rent", Amount: decimal.NewFromInt(900)})
	require.NoError(t, err)

	got, err := repo.GetBudget(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "900", got.Amount.String())

	_, err = repo.GetBudget(ctx, "u2", b.ID)
	assert.ErrorIs(t, err, ports.ErrBudgetNotFound)

	require.NoError(t, repo.DeleteBudget(ctx, "u1", b.ID))
	assert.ErrorIs(t, repo.DeleteBudget(ctx, "u1", b.ID), ports.ErrBudgetNotFound)
}

func TestExpensesAndCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	when := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	_, err := repo.AddExpense(ctx, core.Expense{UserID: "u1", Category: "groceries", Amount: decimal.RequireFromString("12.34"), Date: when})
	require.NoError(t, err)
	_, err = repo.AddExpense(ctx, core.Expense{UserID: "u2", Category: "groceries", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	exps, err := repo.ListExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "12.34", exps[0].Amount.String())
	assert.True(t, when.Equal(exps[0].Date))

	require.NoError(t, repo.AddCategory(ctx, "u1", "Pet_Care"))
	assert.ErrorIs(t, repo.AddCategory(ctx, "u1", " "), core.ErrEmptyCategory)

	cats, err := repo.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, cats, "groceries")
	assert.Contains(t, cats, "pet_care")
	assert.Equal(t, "groceries", cats[0])

	cats, err = repo.ListCategories(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, cats, "pet_care")
}
