package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"monzo-manager/src/classifier"
	"monzo-manager/src/models"

	"github.com/spf13/cobra"
)

func newClassifyCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "classify [transaction.json]",
		Short: "Print the classes a transaction belongs to",
		Long:  "Classifies a transaction read from a JSON file, from stdin when the file is \"-\", or fetched from the bank with --id.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			classes, err := classifier.Load(cfg.ClassesFile, cfg.OnMissingField)
			if err != nil {
				return err
			}

			var tx models.Transaction
			switch {
			case id != "":
				client, err := connect(cmd.Context(), cfg, consoleAuthorizer(cmd))
				if err != nil {
					return err
				}
				if tx, err = client.Transaction(cmd.Context(), id); err != nil {
					return fmt.Errorf("fetching transaction: %w", err)
				}
			case len(args) == 1:
				if tx, err = readTransaction(cmd.InOrStdin(), args[0]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a transaction file or --id is required")
			}

			return runClassify(cmd.OutOrStdout(), classes, tx)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "fetch the transaction with this id from the bank")

	return cmd
}

func readTransaction(stdin io.Reader, path string) (models.Transaction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transaction: %w", err)
	}
	var tx models.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}
	return tx, nil
}

func runClassify(out io.Writer, classes *classifier.Classifier, tx models.Transaction) error {
	matched := classes.Classify(tx)
	if len(matched) == 0 {
		fmt.Fprintln(out, "(no classes)")
		return nil
	}
	for _, name := range matched {
		fmt.Fprintln(out, name)
	}
	return nil
}
