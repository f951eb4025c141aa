package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to the provided root command.
// backends are the telemetry backends compiled into the binary.
func AttachCobraVersionCommand(root *cobra.Command, backends ...string) {
	root.Version = Short()

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long: `Print the version, commit hash and build timestamp injected at build time
through ldflags, plus the Go runtime and the telemetry backends compiled in.
Builds without -tags nvml only support the nvidia-smi backend.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full(backends...))
		},
	})
}
