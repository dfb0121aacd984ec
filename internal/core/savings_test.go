package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSavingsInput(t *testing.T) {
	in, err := ParseSavingsInput("50000", "30000.50", "60000", "6", " Laptop ")
	require.NoError(t, err)
	assert.Equal(t, "30000.5", in.Expenses.String())
	assert.Equal(t, 6, in.Timeframe)
	assert.Equal(t, "Laptop", in.GoalName)

	tests := []struct {
		name                       string
		income, expenses, goal, tf string
		want                       error
	}{
		{"non-numeric income", "lots", "1", "1", "1", ErrNonNumericSavings},
		{"fractional timeframe", "10", "1", "1", "2.5", ErrNonNumericSavings},
		{"negative expenses", "10", "-1", "1", "1", ErrNonPositiveSavings},
		{"zero timeframe", "10", "1", "1", "0", ErrNonPositiveSavings},
		{"zero income", "0", "1", "1", "3", ErrNonPositiveSavings},
		{"missing fields", "", "", "", "", ErrNonPositiveSavings},
		{"too long", "10", "1", "1", "601", ErrSavingsTooLong},
	}
	for _, tt := range tests {
		_, err := ParseSavingsInput(tt.income, tt.expenses, tt.goal, tt.tf, "")
		assert.ErrorIs(t, err, tt.want, tt.name)
	}
}

func TestInvalidSavingsPlan(t *testing.T) {
	p := InvalidSavingsPlan(ErrNonNumericSavings)
	assert.Equal(t, "Invalid Input ❌", p.Title)
	assert.Equal(t, "Income, expenses, goal amount, and timeframe must be numbers.", p.Summary)
	assert.True(t, p.MonthlySavingsTarget.IsZero())
	assert.NotNil(t, p.PlanSteps)
	assert.Empty(t, p.ChartData.Labels)

	p = InvalidSavingsPlan(ErrNonPositiveSavings)
	assert.Contains(t, p.Summary, "All numbers must be positive")
	assert.False(t, p.Feasible)
}

func TestNewSavingsPlanInfeasible(t *testing.T) {
	in, err := ParseSavingsInput("50000", "45000", "60000", "6", "Bike")
	require.NoError(t, err)

	p := NewSavingsPlan(in)
	assert.False(t, p.Feasible)
	assert.Equal(t, "Goal Not Possible 😔", p.Title)
	assert.Equal(t, "5000", p.MonthlySavingsTarget.String())
	assert.Equal(t, 12, p.SuggestedTimeframe)
	assert.Contains(t, p.Summary, "You can save only ₹5000.00 per month.")
	assert.Contains(t, p.Summary, "In 6 months, you can save ₹30000.00")
	assert.Contains(t, p.Summary, "try a plan of about 12 months.")
	assert.Empty(t, p.PlanSteps)

	require.Len(t, p.ChartData.Labels, 6)
	assert.Equal(t, "Month 1", p.ChartData.Labels[0])
	assert.Equal(t, "5000", p.ChartData.Values[0].String())
	assert.Equal(t, "30000", p.ChartData.Values[5].String())
}

func TestNewSavingsPlanNoSurplus(t *testing.T) {
	in, err := ParseSavingsInput("1000", "1500", "100", "3", "")
	require.NoError(t, err)

	p := NewSavingsPlan(in)
	assert.False(t, p.Feasible)
	assert.True(t, p.MonthlySavingsTarget.IsZero())
	assert.Zero(t, p.SuggestedTimeframe)
	assert.NotContains(t, p.Summary, "try a plan")
	assert.Len(t, p.ChartData.Values, 3)
}

func TestNewSavingsPlanFeasible(t *testing.T) {
	in, err := ParseSavingsInput("50000", "30000", "10000", "3", "Trip")
	require.NoError(t, err)

	p := NewSavingsPlan(in)
	assert.True(t, p.Feasible)
	assert.Equal(t, "Smart Saver Plan for Trip 🎯", p.Title)
	assert.Equal(t, "3333.34", p.MonthlySavingsTarget.String(), "target rounds up")
	require.Len(t, p.PlanSteps, 3)
	assert.Equal(t, 1, p.PlanSteps[0].StepNumber)
	assert.Equal(t, "16666.66", p.PlanSteps[1].PotentialSavings.String())

	require.Len(t, p.ChartData.Values, 3)
	assert.Equal(t, "6666.68", p.ChartData.Values[1].String())
	assert.Equal(t, "10000", p.ChartData.Values[2].String(), "chart caps at the goal")
}
