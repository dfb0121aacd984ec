package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const defaultIcon = "fas fa-question-circle"

var hundred = decimal.NewFromInt(100)

// categoryDisplay maps normalised category names to their labels.
var categoryDisplay = map[string]string{
	"groceries":                    "🛒 Groceries",
	"transportation":               "🚗 Transportation",
	"shopping & personal care":     "🛍️ Shopping & Personal Care",
	"entertainment & dining":       "🎬 Entertainment & Dining",
	"utilities":                    "💡 Utilities",
	"healthcare":                   "🏥 Healthcare",
	"education & self-development": "📚 Education & Self-Development",
	"travel":                       "✈️ Travel",
	"savings & investments":        "💰 Savings & Investments",
	"debt payments":                "💳 Debt Payments",
	"housing":                      "🏠 Housing",
	"other":                        "📝 Other",
	"uncategorized":                "❓ Uncategorized",
}

var categoryIcons = map[string]string{
	"food":          "fas fa-utensils",
	"transport":     "fas fa-bus",
	"shopping":      "fas fa-shopping-bag",
	"entertainment": "fas fa-film",
	"bills":         "fas fa-lightbulb",
	"healthcare":    "fas fa-heartbeat",
	"education":     "fas fa-graduation-cap",
	"travel":        "fas fa-plane",
	"savings":       "fas fa-piggy-bank",
	"other":         defaultIcon,
	"uncategorized": defaultIcon,
}

// Analysis is the budgets page model: the snapshot plus page totals.
type Analysis struct {
	Categories     Snapshot
	TotalBudget    decimal.Decimal
	TotalSpent     decimal.Decimal
	TotalRemaining decimal.Decimal
}

// DropdownOption is one entry of the category selector.
type DropdownOption struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// DisplayName returns the label shown for a category on budget cards.
func DisplayName(category string) string {
	key := NormalizeCategory(category)
	if d, ok := categoryDisplay[key]; ok {
		return d
	}
	return titleCase(strings.ReplaceAll(key, "_", " "))
}

// Icon returns the Font Awesome class for a category.
func Icon(category string) string {
	if icon, ok := categoryIcons[NormalizeCategory(category)]; ok {
		return icon
	}
	return defaultIcon
}

// Options builds selector entries for the user's categories. Unknown
// categories get a generic note emoji.
func Options(categories []string) []DropdownOption {
	out := make([]DropdownOption, 0, len(categories))
	for _, name := range categories {
		display, ok := categoryDisplay[NormalizeCategory(name)]
		if !ok {
			display = "📝 " + titleCase(strings.ReplaceAll(name, "_", " "))
		}
		out = append(out, DropdownOption{Value: name, Display: display})
	}
	return out
}

// LatestBudgets keeps the most recently created budget per normalised
// category, preserving the order in which categories first appear.
func LatestBudgets(budgets []Budget) []Budget {
	index := make(map[string]int)
	var out []Budget
	for _, b := range budgets {
		key := NormalizeCategory(b.Category)
		if key == "" {
			continue
		}
		b.Category = key
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, b)
			continue
		}
		if !b.CreatedAt.IsZero() && (out[i].CreatedAt.IsZero() || b.CreatedAt.After(out[i].CreatedAt)) {
			out[i] = b
		}
	}
	return out
}

// BuildAnalysis joins budgets with expenses into a snapshot.
//
// Expenses count toward a budget only on an exact normalised category match.
// The stored percentage is clamped to 100 and rounded to two places; budgets
// of zero report 0%.
func BuildAnalysis(budgets []Budget, expenses []Expense) Analysis {
	latest := LatestBudgets(budgets)

	spent := make(map[string]decimal.Decimal, len(latest))
	for _, b := range latest {
		spent[b.Category] = decimal.Zero
	}

	a := Analysis{
		Categories:  make(Snapshot, 0, len(latest)),
		TotalBudget: decimal.Zero,
		TotalSpent:  decimal.Zero,
	}
	for _, e := range expenses {
		key := NormalizeCategory(e.Category)
		if cur, ok := spent[key]; ok {
			spent[key] = cur.Add(e.Amount)
			a.TotalSpent = a.TotalSpent.Add(e.Amount)
		}
	}

	for _, b := range latest {
		s := spent[b.Category]
		pct := decimal.Zero
		if b.Amount.IsPositive() {
			pct = decimal.Min(hundred, s.Div(b.Amount).Mul(hundred).RoundBank(2))
		}
		a.TotalBudget = a.TotalBudget.Add(b.Amount)
		a.Categories = append(a.Categories, CategorySummary{
			ID:                 b.ID,
			Name:               b.Category,
			DisplayName:        DisplayName(b.Category),
			Icon:               Icon(b.Category),
			Period:             b.Period,
			SpentAmount:        s,
			BudgetAmount:       b.Amount,
			Remaining:          b.Amount.Sub(s),
			ProgressPercentage: pct,
		})
	}

	a.TotalRemaining = a.TotalBudget.Sub(a.TotalSpent)
	if a.TotalBudget.IsZero() {
		a.TotalRemaining = decimal.Zero
	}
	return a
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
