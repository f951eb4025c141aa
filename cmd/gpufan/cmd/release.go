package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/gpufan/internal/service/release"
)

var (
	// force releases even when a live controller holds the fans.
	force bool

	// releaseCmd hands fan control back to the driver.
	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "Restore automatic fan control on every GPU.",
		Long: `Hand fan control back to the driver on every GPU and remove the takeover
marker. Use it after the controller was killed without a chance to clean up.

Refuses to run while a live controller holds the fans unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return release.Run(cmd.Context(), &release.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				Force:      force,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	releaseCmd.Flags().BoolVarP(&force, "force", "f", false, "release even if a running controller holds the fans")
}
