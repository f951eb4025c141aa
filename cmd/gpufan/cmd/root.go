package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gpufan/internal/nvidia"
	"github.com/oshokin/gpufan/internal/service/controller"
	"github.com/oshokin/gpufan/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// speedTablePath overrides the speed table location from the settings.
	speedTablePath string
	// logLevel overrides the log level from the settings.
	logLevel string

	// rootCmd represents the base command running the fan controller.
	rootCmd = &cobra.Command{
		Use:   "gpufan",
		Short: "Drive NVIDIA GPU fans from a temperature table.",
		Long: `Foreground controller that takes over the fans of every NVIDIA GPU and
sets their speed from a temperature-to-percent table.

Every poll interval (1 second by default) each GPU is read with nvidia-smi.
When the table asks for a speed other than the current one, a change line is
printed to stdout and the new speed is sent through nvidia-settings.

On SIGINT or SIGTERM, and on any fatal error, fan control is handed back to
the driver on every GPU before the process exits.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return controller.Run(ctx, &controller.Options{
				ConfigPath:     configPath,
				SpeedTablePath: speedTablePath,
				LogLevel:       logLevel,
			})
		},
	}
)

// Execute runs the gpufan CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd, nvidia.TelemetryBackends()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to settings file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&speedTablePath, "speed-table", "t", "", "path to speed table file (default fanspeed.json)")

	rootCmd.AddCommand(statusCmd, releaseCmd, healthCmd)
}
