package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one mirrored budget.
type Row struct {
	ID        int64
	UserID    string
	Category  string
	Amount    string
	Period    string
	UpdatedAt time.Time
}

// Values renders the row in column order A:F.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.UserID,
		r.Category,
		r.Amount,
		r.Period,
		r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// rowIndexOf returns the 1-based sheet row whose first cell is id, or 0.
// Header and blank rows are skipped because their first cell is not numeric.
func rowIndexOf(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(fmt.Sprint(row[0]))
		n, err := strconv.ParseInt(cell, 10, 64)
		if err == nil && n == id {
			return i + 1
		}
	}
	return 0
}
