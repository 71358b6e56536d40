// Package cmd contains the CLI commands for alerty.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "alerty",
	Short: "Alerty - incident alerting with device notifications",
	Long: `Alerty records incident reports, classifies their severity and
notifies the device through browser notifications or a push relay.

Examples:
  # Run the service with a config file
  alerty serve --config config.yaml

  # Store the classifier API key in the OS keyring
  alerty credentials set`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (env: ALERTY_*)")
}
