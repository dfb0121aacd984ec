package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxSavingsMonths bounds the plan length and so the chart size.
const MaxSavingsMonths = 600

var (
	ErrNonNumericSavings  = errors.New("income, expenses, goal amount and timeframe must be numbers")
	ErrNonPositiveSavings = errors.New("savings inputs must be positive with a non-zero timeframe")
	ErrSavingsTooLong     = errors.New("savings timeframe too long")
)

// SavingsInput is a request for a plan to save GoalAmount over Timeframe
// months out of the surplus of Income over Expenses.
type SavingsInput struct {
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	GoalAmount decimal.Decimal
	Timeframe  int
	GoalName   string
}

// PlanStep is one action in a savings plan.
type PlanStep struct {
	StepNumber       int             `json:"step_number"`
	Icon             string          `json:"icon"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
}

// ChartData holds one cumulative savings value per month.
type ChartData struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type SavingsPlan struct {
	Title                string          `json:"title"`
	Summary              string          `json:"summary"`
	MonthlySavingsTarget decimal.Decimal `json:"monthly_savings_target"`
	PlanSteps            []PlanStep      `json:"plan_steps"`
	ChartData            ChartData       `json:"chart_data"`
	Feasible             bool            `json:"feasible"`

	// SuggestedTimeframe is the number of months that would reach the goal
	// when the requested timeframe is too short. Zero when no surplus exists.
	SuggestedTimeframe int `json:"suggested_timeframe,omitempty"`
}

// ParseSavingsInput reads the smart saver form fields. Missing numbers count
// as zero and are then rejected by Validate.
func ParseSavingsInput(income, expenses, goalAmount, timeframe, goalName string) (SavingsInput, error) {
	var in SavingsInput
	var err error
	if in.Income, err = parseSavingsNumber(income); err != nil {
		return SavingsInput{}, err
	}
	if in.Expenses, err = parseSavingsNumber(expenses); err != nil {
		return SavingsInput{}, err
	}
	if in.GoalAmount, err = parseSavingsNumber(goalAmount); err != nil {
		return SavingsInput{}, err
	}
	if tf := strings.TrimSpace(timeframe); tf != "" {
		if in.Timeframe, err = strconv.Atoi(tf); err != nil {
			return SavingsInput{}, ErrNonNumericSavings
		}
	}
	in.GoalName = strings.TrimSpace(goalName)
	return in, in.Validate()
}

func parseSavingsNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNonNumericSavings
	}
	return d, nil
}

func (in SavingsInput) Validate() error {
	if in.Income.IsNegative() || in.Expenses.IsNegative() || in.GoalAmount.IsNegative() || in.Timeframe < 0 {
		return ErrNonPositiveSavings
	}
	if in.Timeframe == 0 || in.Income.IsZero() {
		return ErrNonPositiveSavings
	}
	if in.Timeframe > MaxSavingsMonths {
		return ErrSavingsTooLong
	}
	return nil
}

// InvalidSavingsPlan is the empty plan returned for rejected input.
func InvalidSavingsPlan(err error) SavingsPlan {
	summary := "All numbers must be positive and timeframe cannot be zero. Please correct and try again."
	switch {
	case errors.Is(err, ErrNonNumericSavings):
		summary = "Income, expenses, goal amount, and timeframe must be numbers."
	case errors.Is(err, ErrSavingsTooLong):
		summary = fmt.Sprintf("Timeframe cannot exceed %d months.", MaxSavingsMonths)
	}
	return SavingsPlan{
		Title:                "Invalid Input ❌",
		Summary:              summary,
		MonthlySavingsTarget: decimal.Zero,
		PlanSteps:            []PlanStep{},
		ChartData:            ChartData{Labels: []string{}, Values: []decimal.Decimal{}},
	}
}

// NewSavingsPlan builds a plan for validated input.
//
// The monthly surplus is Income-Expenses, floored at zero. When the surplus
// over Timeframe months falls short of the goal the plan is infeasible: it
// charts what the surplus would reach and suggests the smallest timeframe
// that covers the goal. Otherwise the goal is split evenly over the months,
// rounded up to the paisa.
func NewSavingsPlan(in SavingsInput) SavingsPlan {
	if err := in.Validate(); err != nil {
		return InvalidSavingsPlan(err)
	}

	surplus := decimal.Max(decimal.Zero, in.Income.Sub(in.Expenses))
	total := surplus.Mul(decimal.NewFromInt(int64(in.Timeframe)))

	if !surplus.IsPositive() || total.LessThan(in.GoalAmount) {
		return infeasiblePlan(in, surplus, total)
	}

	target := decimal.Min(surplus, in.GoalAmount.Div(decimal.NewFromInt(int64(in.Timeframe))).RoundCeil(2))
	cushion := surplus.Sub(target)
	goal := in.GoalName
	if goal == "" {
		goal = "your goal"
	}

	return SavingsPlan{
		Title: "Smart Saver Plan for " + goal + " 🎯",
		Summary: fmt.Sprintf("Save %s per month for %d months to reach %s. That leaves %s of your monthly surplus free.",
			FormatRupees(target), in.Timeframe, FormatRupees(in.GoalAmount), FormatRupees(cushion)),
		MonthlySavingsTarget: target,
		PlanSteps: []PlanStep{
			{
				StepNumber:       1,
				Icon:             "fas fa-piggy-bank",
				Title:            "Pay yourself first",
				Description:      fmt.Sprintf("Move %s to a separate savings account on payday.", FormatRupees(target)),
				PotentialSavings: target,
			},
			{
				StepNumber:       2,
				Icon:             "fas fa-shield-alt",
				Title:            "Keep a buffer",
				Description:      fmt.Sprintf("Leave the remaining %s for irregular expenses so the transfer never has to be skipped.", FormatRupees(cushion)),
				PotentialSavings: cushion,
			},
			{
				StepNumber:       3,
				Icon:             "fas fa-chart-line",
				Title:            "Track it monthly",
				Description:      "Set a budget for each spending category and check the progress bars before the month closes.",
				PotentialSavings: in.GoalAmount,
			},
		},
		ChartData: cumulativeChart(in.Timeframe, target, in.GoalAmount),
		Feasible:  true,
	}
}

func infeasiblePlan(in SavingsInput, surplus, total decimal.Decimal) SavingsPlan {
	summary := fmt.Sprintf("Your income is %s and expenses are %s. You can save only %s per month. "+
		"In %d months, you can save %s, which is less than your goal (%s).",
		FormatRupees(in.Income), FormatRupees(in.Expenses), FormatRupees(surplus),
		in.Timeframe, FormatRupees(total), FormatRupees(in.GoalAmount))

	var suggested int
	if surplus.IsPositive() {
		suggested = int(in.GoalAmount.Div(surplus).Ceil().IntPart())
		summary += fmt.Sprintf(" To reach %s, try a plan of about %d months.", FormatRupees(in.GoalAmount), suggested)
	}

	return SavingsPlan{
		Title:                "Goal Not Possible 😔",
		Summary:              summary,
		MonthlySavingsTarget: surplus,
		PlanSteps:            []PlanStep{},
		ChartData:            cumulativeChart(in.Timeframe, surplus, decimal.Zero),
		SuggestedTimeframe:   suggested,
	}
}

// cumulativeChart lists monthly*i for each month, capped at limit when limit
// is positive.
func cumulativeChart(months int, monthly, limit decimal.Decimal) ChartData {
	c := ChartData{Labels: make([]string, 0, months), Values: make([]decimal.Decimal, 0, months)}
	for i := 1; i <= months; i++ {
		v := monthly.Mul(decimal.NewFromInt(int64(i)))
		if limit.IsPositive() && v.GreaterThan(limit) {
			v = limit
		}
		c.Labels = append(c.Labels, "Month "+strconv.Itoa(i))
		c.Values = append(c.Values, v)
	}
	return c
}
