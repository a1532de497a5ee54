package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var metafieldsCmd = &cobra.Command{
	Use:   "metafields <customer-id>",
	Short: "Resolve the enrichment metafields of a Shopify customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		fields := a.resolver.Resolve(cmd.Context(), args[0])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	},
}
