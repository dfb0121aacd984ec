package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

type (
	Period string

	// CategorySummary is one row of the budgets snapshot: what was budgeted for
	// a category and how much of it has been spent.
	CategorySummary struct {
		ID                 int64           `json:"id"`
		Name               string          `json:"name"`
		DisplayName        string          `json:"display_name"`
		Icon               string          `json:"icon,omitempty"`
		Period             Period          `json:"period,omitempty"`
		SpentAmount        decimal.Decimal `json:"spent_amount"`
		BudgetAmount       decimal.Decimal `json:"budget_amount"`
		Remaining          decimal.Decimal `json:"remaining"`
		ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	}

	// Snapshot is the ordered set of summaries loaded once per page view.
	Snapshot []CategorySummary

	Budget struct {
		ID        int64
		UserID    string
		Category  string // stored lowercased
		Amount    decimal.Decimal
		Period    Period
		CreatedAt time.Time
	}

	Expense struct {
		ID       int64
		UserID   string
		Category string
		Amount   decimal.Decimal
		Date     time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrEmptyUser     = errors.New("empty user id")
)

// ParsePeriod normalises a period name. An empty value means monthly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Monthly, nil
	case Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := ParsePeriod(string(b.Period)); err != nil {
		return err
	}
	return nil
}

// Validate checks an expense before it is recorded. Amounts must be
// positive.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeCategory is the key budgets and expenses are matched on.
func NormalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize lowercases the category and resolves an empty period to monthly.
// Call it after Validate.
func (b Budget) Normalize() Budget {
	b.Category = NormalizeCategory(b.Category)
	if p, err := ParsePeriod(string(b.Period)); err == nil {
		b.Period = p
	}
	return b
}
