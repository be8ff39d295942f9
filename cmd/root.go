// Package cmd implements the smartalerte command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/smartalerte/smartalerte/internal/conf"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	BuildDate string
}

// RootCommand creates the root command with all subcommands attached.
func RootCommand(info BuildInfo) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "smartalerte",
		Short:         "Inventory alert evaluation and notification service",
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := conf.Load(cfgFile)
			if err != nil {
				return err
			}
			conf.SetSettings(settings)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or $HOME/.config/smartalerte/config.yaml)")

	rootCmd.AddCommand(
		serveCommand(info),
		sweepCommand(info),
		seedDefaultAlertCommand(info),
		cleanupCommand(info),
	)
	return rootCmd
}
