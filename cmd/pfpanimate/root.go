package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "pfpanimate",
		Short:         "Animate profile pictures with Replicate models",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.presetsFlag, "presets", "", "TOML file extending the built-in presets (overrides PRESETS_FILE)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newKeyframeCommand(ctx))
	rootCmd.AddCommand(newLipSyncCommand(ctx))
	rootCmd.AddCommand(newKlingCommand(ctx))
	rootCmd.AddCommand(newVeoCommand(ctx))
	rootCmd.AddCommand(newPortraitCommand(ctx))
	rootCmd.AddCommand(newPresetsCommand(ctx))

	return rootCmd
}

// outputFlags are shared by every command that produces a deliverable.
type outputFlags struct {
	path    string
	publish bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "Output file path (defaults to OUTPUT_DIR/<job id>.<ext>)")
	cmd.Flags().BoolVar(&o.publish, "publish", false, "Upload the result to the configured S3 bucket")
}
