package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/scala-steward-action/internal/actions"
	"github.com/oshokin/scala-steward-action/internal/config"
	"github.com/oshokin/scala-steward-action/internal/logger"
	"github.com/oshokin/scala-steward-action/internal/service/steward"
	"github.com/oshokin/scala-steward-action/internal/version"
)

var (
	// configPath to the optional YAML defaults file.
	configPath string

	// rootCmd prepares the runner and launches Scala Steward.
	rootCmd = &cobra.Command{
		Use:           "steward-action",
		Short:         "Prepare the runner and launch Scala Steward",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}

			options := &steward.Options{
				ConfigPath: configPath,
				Env:        config.Environ(os.Environ()),
				WorkDir:    workDir,
				Annotator:  actions.NewAnnotator(cmd.OutOrStdout()),
			}

			return steward.Run(ctx, options)
		},
	}
)

// Execute runs the steward-action CLI. Any failure is reported as a
// workflow error annotation and the process exits with status 1.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		actions.NewAnnotator(rootCmd.OutOrStdout()).SetFailed(err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to an optional YAML file with default inputs")
}
