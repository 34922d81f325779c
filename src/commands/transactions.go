package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"monzo-manager/src/classifier"
	"monzo-manager/src/models"

	"github.com/spf13/cobra"
)

func newTransactionsCommand() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recent transactions with the classes they belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			classes, err := classifier.Load(cfg.ClassesFile, cfg.OnMissingField)
			if err != nil {
				return err
			}
			client, err := connect(cmd.Context(), cfg, consoleAuthorizer(cmd))
			if err != nil {
				return err
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			txs, err := client.Transactions(cmd.Context(), from)
			if err != nil {
				return err
			}
			return runTransactions(cmd.OutOrStdout(), classes, txs)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to list, 0 for everything")

	return cmd
}

func runTransactions(out io.Writer, classes *classifier.Classifier, txs []models.Transaction) error {
	for _, tx := range txs {
		amount, err := tx.Amount()
		if err != nil {
			return err
		}
		matched := strings.Join(classes.Classify(tx), ",")
		if matched == "" {
			matched = "-"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", tx.Created(), tx.ID(), models.FormatPence(amount), matched)
	}
	return nil
}
