package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xivkit/modpack/internal/service/inspect"
	"github.com/xivkit/modpack/internal/version"
)

var (
	// versionOnly prints just the package's format tag.
	versionOnly bool

	// legacy applies the line-delimited legacy listing.
	legacy bool

	// rootCmd represents the base command for inspecting package archives.
	rootCmd = &cobra.Command{
		Use:   "modpack-inspect [archive]",
		Short: "Print a summary of a package archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &inspect.Options{
				ArchivePath: args[0],
				VersionOnly: versionOnly,
				Legacy:      legacy,
			}

			return inspect.Run(ctx, options)
		},
	}
)

// Execute runs the modpack-inspect CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().BoolVar(&versionOnly, "version-only", false, "print only the format tag")
	rootCmd.Flags().BoolVar(&legacy, "legacy", false, "list entries via the legacy line-delimited reader")
}
