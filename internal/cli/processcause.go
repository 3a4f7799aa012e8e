package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixpig/nosreboot/internal/operations"
)

func processCauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "process-cause",
		Short:   "Archive the pending reboot cause\n\n \033[31m ⚠ FOR INTERNAL USE ONLY - RUN FROM THE BOOT SERVICE ⚠ \033[0m",
		Example: "\n -- FOR INTERNAL USE ONLY --",
		Args:    cobra.NoArgs,
		Hidden:  true, // this command is only run from the boot service unit
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := operations.ProcessCause(&operations.ProcessCauseOpts{
				Config: loadConfig(cmd),
			}); err != nil {
				return fmt.Errorf("process-cause: %w", err)
			}

			return nil
		},
	}

	return cmd
}
