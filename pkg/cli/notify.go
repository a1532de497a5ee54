package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/containerhouse/leadrelay/pkg/services"
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test <to>",
	Short: "Send a test notification through the configured transports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		result := a.notifier.Deliver(cmd.Context(), services.BuildTestNotification(args[0]))
		for _, attempt := range result.Attempts {
			status := "ok"
			if !attempt.Success {
				status = attempt.Error
			}
			fmt.Printf("%-12s %s\n", attempt.Provider, status)
		}
		if !result.Success {
			return fmt.Errorf("notification not delivered: %s", result.Reason)
		}
		fmt.Printf("Delivered via %s\n", result.Provider)
		return nil
	},
}
