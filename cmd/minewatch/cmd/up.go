/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap a configuration if needed, then serve",
	Long: `Start the REST API server, writing a configuration with a generated API
key first when none exists. This is the entry point the systemd unit uses.

Examples:
  minewatch up
  minewatch up --config /etc/minewatch/config.yaml --data-dir /var/lib/minewatch`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if !config.ConfigExists(configPath) {
			if _, err := config.BootstrapConfig(configPath, dataDir); err != nil {
				return err
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}
		return setupContainer(cmd, configPath)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	addServerFlags(upCmd)
}
