/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new configuration with a generated API key",
	Long: `Write a configuration file with default settings and a freshly
generated 256-bit API key. An existing file is left alone unless --force is given.

Examples:
  minewatch init
  minewatch init --config /etc/minewatch/config.yaml --data-dir /var/lib/minewatch`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init writes the configuration the root command would load
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := initConfig(configPath, dataDir, force)
		if err != nil {
			return err
		}

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		cmd.Printf("Wrote configuration to %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.Pebble.DataDir)
		cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		cmd.Printf("Store the API key securely; clients send it in the X-API-Key header.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

// initConfig bootstraps a configuration at configPath
func initConfig(configPath, dataDir string, force bool) (*config.Config, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if config.ConfigExists(configPath) && !force {
		return nil, fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}
	return config.BootstrapConfig(configPath, dataDir)
}
