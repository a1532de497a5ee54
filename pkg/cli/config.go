package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/containerhouse/leadrelay/pkg/api"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(api.MaskedConfig(a.config, a.notifier.Transports()))
	},
}
