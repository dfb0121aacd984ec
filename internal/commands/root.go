// Package commands implements the neuralbudget command line: the HTTP
// server, the Sheets mirror worker, schema migrations and a terminal
// progress view.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "neuralbudget",
		Short:   "Category budgets with live progress tracking",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newMigrateCommand(),
		newProgressCommand(),
	)

	return rootCmd
}
