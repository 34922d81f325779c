package commands

import (
	"fmt"
	"io"
	"time"

	"monzo-manager/src/budget"
	"monzo-manager/src/models"

	"github.com/spf13/cobra"
)

func newBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect or run the budget reconciler",
	}
	cmd.AddCommand(newBudgetShowCommand(), newBudgetRunCommand())
	return cmd
}

func newBudgetShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the budget ledger and the next scheduled run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBudgetShow(cmd.OutOrStdout(), budget.NewLedgerStore(cfg.BudgetFile))
		},
	}
}

func runBudgetShow(out io.Writer, store *budget.LedgerStore) error {
	ledger, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Buffer:      %s\n", models.FormatPence(ledger.Buffer))
	fmt.Fprintf(out, "Budget:      %s\n", models.FormatPence(ledger.Budget))
	fmt.Fprintf(out, "Current net: %s\n", models.FormatPence(ledger.CurrentNet))
	fmt.Fprintf(out, "Pot:         %s\n", ledger.Pot)
	fmt.Fprintf(out, "Schedule:    %s\n", ledger.ScheduleExpression)
	if !ledger.Active {
		fmt.Fprintln(out, "Status:      inactive")
		return nil
	}
	fmt.Fprintln(out, "Status:      active")

	schedule, err := budget.ParseSchedule(ledger.ScheduleExpression)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Next run:    %s\n", schedule.Next(time.Now()).Format("Mon 2 Jan 2006 15:04"))
	return nil
}

func newBudgetRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reconcile the budget now, outside the schedule",
		Args:  cobra.NoArgs,
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

			result, err := budget.NewReconciler(client, budget.NewLedgerStore(cfg.BudgetFile)).
				WithRecorder(runs).
				Run(ctx)
			if err != nil {
				return fmt.Errorf("running budget: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance:     %s\n", models.FormatPence(result.Balance))
			fmt.Fprintf(out, "Net change:  %s\n", models.FormatPence(result.NetChange))
			fmt.Fprintf(out, "Transferred: %s (from %s)\n", models.FormatPence(result.ToTransfer), result.Pot)
			fmt.Fprintf(out, "New net:     %s\n", models.FormatPence(result.CurrentNet))
			return nil
		},
	}
}
