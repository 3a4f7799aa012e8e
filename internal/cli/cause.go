package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixpig/nosreboot/internal/operations"
)

func causeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cause [history]",
		Short:   "Show why the device last rebooted",
		Example: "  nosreboot cause\n  nosreboot cause history",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)

			if len(args) > 0 {
				if args[0] != "history" {
					return fmt.Errorf("unknown cause view '%s'", args[0])
				}

				history, err := operations.CauseHistory(&operations.CauseHistoryOpts{
					Config: cfg,
				})
				if err != nil {
					return fmt.Errorf("failed to get cause history: %w", err)
				}

				if _, err := cmd.OutOrStdout().Write([]byte(history)); err != nil {
					return fmt.Errorf("failed to print history to stdout: %w", err)
				}

				return nil
			}

			cause, err := operations.ShowCause(&operations.ShowCauseOpts{
				Config: cfg,
			})
			if err != nil {
				return fmt.Errorf("failed to get reboot cause: %w", err)
			}

			if _, err := cmd.OutOrStdout().Write([]byte(cause + "\n")); err != nil {
				return fmt.Errorf("failed to print cause to stdout: %w", err)
			}

			return nil
		},
	}

	return cmd
}
