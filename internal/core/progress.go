package core

import "github.com/shopspring/decimal"

// Tier is the coarse severity of budget usage.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

var (
	lowCeiling    = decimal.NewFromInt(50)
	mediumCeiling = decimal.NewFromInt(80)
)

// ProgressState is what the budgets page needs to draw the mini progress bar.
type ProgressState struct {
	SpentAmount  decimal.Decimal `json:"spent_amount"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	Percentage   decimal.Decimal `json:"percentage"`
	Tier         Tier            `json:"tier"`
	Visible      bool            `json:"visible"`
}

// TierFor classifies a usage percentage.
func TierFor(pct decimal.Decimal) Tier {
	switch {
	case pct.LessThanOrEqual(lowCeiling):
		return TierLow
	case pct.LessThanOrEqual(mediumCeiling):
		return TierMedium
	default:
		return TierHigh
	}
}

// ComputeProgressState turns a FindMatch result into a render state. A miss
// yields a visible, zeroed bar. The percentage is used as supplied and may be
// above 100.
func ComputeProgressState(summary CategorySummary, found bool) ProgressState {
	if !found {
		return ProgressState{
			SpentAmount:  decimal.Zero,
			BudgetAmount: decimal.Zero,
			Percentage:   decimal.Zero,
			Tier:         TierLow,
			Visible:      true,
		}
	}
	return ProgressState{
		SpentAmount:  summary.SpentAmount,
		BudgetAmount: summary.BudgetAmount,
		Percentage:   summary.ProgressPercentage,
		Tier:         TierFor(summary.ProgressPercentage),
		Visible:      true,
	}
}
