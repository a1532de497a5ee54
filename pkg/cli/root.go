package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "leadrelay",
		Short: "leadrelay - Shopify customer webhooks to Brevo contacts and lead notifications",
		Long: `leadrelay receives Shopify customer webhooks, enriches the customer with its
metafields, upserts the contact in Brevo and notifies the sales team.

Running without a subcommand starts the HTTP server.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(metafieldsCmd)
	rootCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
