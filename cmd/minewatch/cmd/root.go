/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/config"
	"github.com/ssargent/minewatch/pkg/di"
)

var (
	// container is built by the root command before any subcommand runs
	container *di.Container

	containerOptions []di.Option
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minewatch",
	Short: "Minewatch - worker telemetry generator and store",
	Long: `Minewatch generates, stores and serves helmet telemetry readings
(ground number, helmet number, SpO2, temperature, gas level and heart rate).

Readings live in a table keyed by PrimKey (ground number + helmet number) and
sorted by GroundNum, on a local pebble store, DynamoDB or Redis.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return setupContainer(cmd, configPath)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := executeContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

// executeContext runs the root command and releases the container even when
// the command failed, since cobra skips post-run hooks on error
func executeContext(ctx context.Context) (err error) {
	defer func() {
		if cerr := closeContainer(); err == nil {
			err = cerr
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func closeContainer() error {
	if container == nil {
		return nil
	}
	err := container.Close()
	container = nil
	return err
}

// SetContainerOptions allows overriding how the container is built (for testing)
func SetContainerOptions(opts ...di.Option) {
	containerOptions = opts
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default ~/.config/minewatch/config.yaml when present)")
	rootCmd.PersistentFlags().String("backend", "", "Table store backend: pebble, dynamodb or redis")
	rootCmd.PersistentFlags().StringP("table", "t", "", "Readings table name")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the pebble backend")
	rootCmd.PersistentFlags().Bool("in-memory", false, "Keep the pebble backend in memory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// setupContainer loads the effective configuration and builds the container
func setupContainer(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	if err := closeContainer(); err != nil {
		return err
	}
	c, err := di.NewContainer(cfg, containerOptions...)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	container = c
	return nil
}

// loadConfig layers command line flags over the file and environment settings
func loadConfig(cmd *cobra.Command, configPath string) (*config.Config, error) {
	if configPath == "" {
		if path := config.GetDefaultConfigPath(); config.ConfigExists(path) {
			configPath = path
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("table") {
		cfg.Table, _ = flags.GetString("table")
	}
	if flags.Changed("data-dir") {
		cfg.Pebble.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("in-memory") {
		cfg.Pebble.InMemory, _ = flags.GetBool("in-memory")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
