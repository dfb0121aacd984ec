package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"neuralbudget/internal/budgetpage"
	"neuralbudget/internal/core"
)

const barWidth = 30

var (
	tierStyles = map[core.Tier]lipgloss.Style{
		core.TierLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		core.TierMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		core.TierHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true)
)

func newProgressCommand() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "progress LABEL",
		Short: "Show budget progress for a category from a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(snapshotPath)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			page, err := budgetpage.Load(data)
			if err != nil {
				return err
			}

			view, shown := page.Select(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), renderProgress(view, shown, barWidth))
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a processed_categories JSON snapshot (required)")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

// renderProgress draws the progress block in the terminal. The bar is capped
// at full width; the percentage is printed as stored, even above 100.
func renderProgress(view budgetpage.View, shown bool, width int) string {
	if !shown {
		return hintStyle.Render("No category selected.")
	}

	p := view.Progress
	filled := int(p.Percentage.Mul(decimal.NewFromInt(int64(width))).Div(decimal.NewFromInt(100)).Round(0).IntPart())
	filled = max(0, min(width, filled))

	style, ok := tierStyles[p.Tier]
	if !ok {
		style = tierStyles[core.TierLow]
	}

	title := view.Label
	if view.Matched != nil {
		title = view.Matched.DisplayName
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(style.Render(strings.Repeat("█", filled)))
	b.WriteString(trackStyle.Render(strings.Repeat("░", width-filled)))
	fmt.Fprintf(&b, " %s%%\n", p.Percentage.String())
	fmt.Fprintf(&b, "%s of %s used", core.FormatRupees(p.SpentAmount), core.FormatRupees(p.BudgetAmount))
	if view.Suggestion != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(fmt.Sprintf("No budget for %q. Did you mean %s?", view.Label, view.Suggestion)))
	}
	return b.String()
}
