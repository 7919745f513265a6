package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xivkit/modpack/internal/config"
	"github.com/xivkit/modpack/internal/service/pack"
	"github.com/xivkit/modpack/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// outputName overrides the archive filename from the build plan.
	outputName string

	// rootCmd represents the base command for building package archives.
	rootCmd = &cobra.Command{
		Use:   "modpack-pack [build-plan]",
		Short: "Build a package archive from a YAML build plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &pack.Options{
				ConfigPath: configPath,
				PlanPath:   args[0],
				OutputName: outputName,
			}

			return pack.Run(ctx, options)
		},
	}
)

// Execute runs the modpack-pack CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&outputName, "output-name", "o", "", "override the archive filename")
}
