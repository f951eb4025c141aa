package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/gpufan/internal/service/probe"
)

var (
	// healthTimeout bounds the health check call.
	healthTimeout time.Duration

	// healthCmd probes a running controller.
	healthCmd = &cobra.Command{
		Use:   "health [address]",
		Short: "Check that a running controller holds the fans.",
		Long: `Query the gRPC health endpoint of a running controller. Exits with status 0
only when the controller reports SERVING, meaning it holds the fans.

The address can be given as an argument or taken from health_address in the settings file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return probe.Run(cmd.Context(), &probe.Options{
				ConfigPath: configPath,
				Address:    address,
				Timeout:    healthTimeout,
				Output:     cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 0, "health check timeout (defaults to command_timeout)")
}
