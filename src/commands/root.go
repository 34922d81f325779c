package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "monzo-manager",
		Short: "Automates budgeting and salary sorting for a Monzo account",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newAuthCommand(),
		newBudgetCommand(),
		newSortCommand(),
		newClassifyCommand(),
		newTransactionsCommand(),
		newWebhookCommand(),
		newHashPasswordCommand(),
	)

	return rootCmd
}
