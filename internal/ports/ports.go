package ports

import (
	"context"
	"errors"

	"neuralbudget/internal/core"
)

// ErrBudgetNotFound is returned when a budget id does not exist for the user.
var ErrBudgetNotFound = errors.New("budget not found")

// Ports for outbound adapters.
type (
	BudgetWriter interface {
		// SetBudget creates or replaces the user's budget for b.Category and
		// returns the stored record.
		SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error)
	}

	BudgetDeleter interface {
		DeleteBudget(ctx context.Context, userID string, id int64) error
	}

	// ExpenseLister returns the expenses counted against budgets.
	ExpenseLister interface {
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	}

	// ExpenseWriter records spending so it counts against budgets.
	ExpenseWriter interface {
		AddExpense(ctx context.Context, e core.Expense) (int64, error)
	}

	// CategoryReader lists the categories a user can budget for.
	CategoryReader interface {
		ListCategories(ctx context.Context, userID string) ([]string, error)
	}

	// CategoryWriter adds a user-specific category. Adding an existing one
	// is not an error.
	CategoryWriter interface {
		AddCategory(ctx context.Context, userID, name string) error
	}

	// Store is everything the budgets service needs from a backend.
	Store interface {
		BudgetWriter
		BudgetReader
		BudgetDeleter
		ExpenseWriter
		ExpenseLister
		CategoryReader
		CategoryWriter
	}
)
