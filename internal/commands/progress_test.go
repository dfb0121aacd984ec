package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralbudget/internal/budgetpage"
	"neuralbudget/internal/core"
)

const snapshotJSON = `[
	{"id": 1, "name": "groceries", "display_name": "🛒 Groceries", "spent_amount": "450", "budget_amount": "500", "progress_percentage": "90"},
	{"id": 2, "name": "travel", "display_name": "✈️ Travel", "spent_amount": 130, "budget_amount": 100, "progress_percentage": 130},
	{"id": 3, "name": "utilities", "display_name": "💡 Utilities", "spent_amount": 10, "budget_amount": 100, "progress_percentage": 10}
]`

func selectLabel(t *testing.T, label string) (budgetpage.View, bool) {
	t.Helper()
	page, err := budgetpage.Load([]byte(snapshotJSON))
	require.NoError(t, err)
	return page.Select(label)
}

func TestRenderProgressMatched(t *testing.T) {
	v, shown := selectLabel(t, "groceries")
	out := renderProgress(v, shown, 10)

	assert.Contains(t, out, "🛒 Groceries")
	assert.Contains(t, out, strings.Repeat("█", 9))
	assert.Contains(t, out, "░")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "₹450.00 of ₹500.00 used")
	assert.Equal(t, core.TierHigh, v.Progress.Tier)
}

func TestRenderProgressCapsBarNotPercentage(t *testing.T) {
	v, shown := selectLabel(t, "travel")
	out := renderProgress(v, shown, 10)

	assert.Contains(t, out, strings.Repeat("█", 10))
	assert.NotContains(t, out, "░")
	assert.Contains(t, out, "130%")
}

func TestRenderProgressNotFound(t *testing.T) {
	v, shown := selectLabel(t, "utilites")
	out := renderProgress(v, shown, 10)

	assert.Contains(t, out, strings.Repeat("░", 10))
	assert.Contains(t, out, "₹0.00 of ₹0.00 used")
	assert.Contains(t, out, "Did you mean utilities?")
}

func TestRenderProgressHidden(t *testing.T) {
	v, shown := selectLabel(t, "")
	assert.Contains(t, renderProgress(v, shown, 10), "No category selected.")
}

func TestProgressCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0o644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"progress", "--snapshot", path, "✈️ Travel"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "130%")

	cmd = NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"progress", "travel"})
	assert.Error(t, cmd.Execute(), "snapshot flag is required")
}
