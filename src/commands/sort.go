package commands

import (
	"fmt"

	"monzo-manager/src/models"
	"monzo-manager/src/sorter"

	"github.com/spf13/cobra"
)

func newSortCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sort <transaction-id>",
		Short: "Distribute a salary credit across the configured pots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := connect(ctx, cfg, consoleAuthorizer(cmd))
			if err != nil {
				return err
			}
			runs, closeRuns, err := openRunStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRuns()

			alloc, err := sorter.NewSalarySorter(client, cfg.SalaryTiers, cfg.SalaryRemainderPot).
				WithRecorder(runs).
				Sort(ctx, args[0])
			for _, d := range alloc.Deposits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", models.FormatPence(d.Amount), d.Pot)
			}
			if err != nil {
				return fmt.Errorf("sorting %s: %w", args[0], err)
			}
			return nil
		},
	}
}
