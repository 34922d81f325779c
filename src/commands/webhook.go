package commands

import (
	"fmt"

	"monzo-manager/src/listener"

	"github.com/spf13/cobra"
)

func newWebhookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the account's webhook registrations",
	}
	cmd.AddCommand(newWebhookListCommand(), newWebhookRegisterCommand(), newWebhookDeleteCommand())
	return cmd
}

func newWebhookListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := connect(cmd.Context(), cfg, consoleAuthorizer(cmd))
			if err != nil {
				return err
			}
			hooks, err := client.Webhooks(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing webhooks: %w", err)
			}
			for _, h := range hooks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.ID, h.URL)
			}
			return nil
		},
	}
}

// configuredWebhookURL reads the listener URL from the webhook config and adds
// the shared token when one is set.
func configuredWebhookURL(path, token string) (string, error) {
	hookCfg, err := listener.LoadWebhookConfig(path)
	if err != nil {
		return "", err
	}
	return webhookURL(hookCfg.URL, token)
}

func newWebhookRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register [url]",
		Short: "Register a webhook, defaulting to the configured listener URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var hookURL string
			if len(args) == 1 {
				hookURL = args[0]
			} else if hookURL, err = configuredWebhookURL(cfg.WebhookFile, cfg.WebhookToken); err != nil {
				return err
			}

			client, err := connect(cmd.Context(), cfg, consoleAuthorizer(cmd))
			if err != nil {
				return err
			}
			hook, err := client.RegisterWebhook(cmd.Context(), hookURL)
			if err != nil {
				return fmt.Errorf("registering webhook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\t%s\n", hook.ID, hook.URL)
			return nil
		},
	}
}

func newWebhookDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete the webhook registered for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := connect(cmd.Context(), cfg, consoleAuthorizer(cmd))
			if err != nil {
				return err
			}
			if err := client.DeleteWebhook(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting webhook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
