package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/gpufan/internal/service/status"
)

// statusCmd prints one read-only sweep of every GPU.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show temperature, fan speed and table target of every GPU.",
	Long: `Read every GPU once and print a table with its temperature, current fan
speed and the speed the table would set. Fan control is not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return status.Run(cmd.Context(), &status.Options{
			ConfigPath:     configPath,
			SpeedTablePath: speedTablePath,
			LogLevel:       logLevel,
			Output:         cmd.OutOrStdout(),
		})
	},
}
