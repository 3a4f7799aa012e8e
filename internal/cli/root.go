package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nixpig/nosreboot/internal/config"
	"github.com/nixpig/nosreboot/internal/logging"
	"github.com/nixpig/nosreboot/internal/operations"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nosreboot",
		Short: "Gracefully reboot the switch.",
		Long: "Gracefully reboot the switch: halt the hardware abstraction " +
			"layer, stop host services, clear warm-boot state and record the " +
			"reboot cause before handing over to the platform reboot tool.\n\n" +
			"Arguments after -- are forwarded to the reboot tool.",
		Example:      "  nosreboot\n  nosreboot -- -f",
		Version:      "0.1.0",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")

			// Reads stay off syslog; the reboot path reports through it.
			logging.Setup(verbose, cmd.Name() != "cause")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			return operations.Reboot(&operations.RebootOpts{
				Config: loadConfig(cmd),
				Args:   args,
				Force:  force,
			})
		},
	}

	cmd.AddCommand(
		causeCmd(),
		processCauseCmd(),
	)

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.PersistentFlags().StringP(
		"config",
		"",
		config.DefaultPath,
		"Path to the tool configuration file",
	)

	cmd.Flags().BoolP("force", "f", false, "Skip the reboot capability check")

	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}

// loadConfig resolves the tool configuration. A reboot must not be blocked
// by a bad config file, so load failures fall back to the defaults.
func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("invalid config, using defaults")
		return config.Default()
	}

	return cfg
}
