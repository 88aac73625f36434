/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/config"
)

const serviceName = "minewatch.service"

// unitPath is where the systemd unit is installed
var unitPath = "/etc/systemd/system/" + serviceName

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage Minewatch as a systemd service",
	Long: `Manage the Minewatch API server as a systemd service.

The service runs "minewatch up" with a hardened unit and restarts on failure.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// service commands manage systemd, not the table store
		return nil
	},
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Minewatch as a systemd service",
	Long: `Install Minewatch as a systemd service.

This will:
- Create or reuse the configuration
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  minewatch service install
  minewatch service install --data-dir /var/lib/minewatch --user minewatch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		user, _ := cmd.Flags().GetString("user")
		binary, _ := cmd.Flags().GetString("binary")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = "/etc/minewatch/config.yaml"
		}
		if dataDir == "" {
			dataDir = "/var/lib/minewatch"
		}

		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges (run with sudo)")
		}

		cmd.Printf("Installing Minewatch systemd service...\n")

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) {
			if cfg, err = config.LoadConfig(configPath); err != nil {
				return err
			}
			cmd.Printf("Loaded existing configuration\n")
		} else {
			if cfg, err = config.BootstrapConfig(configPath, dataDir); err != nil {
				return err
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}

		if cmd.Flags().Changed("data-dir") {
			cfg.Pebble.DataDir = dataDir
			if err := config.SaveConfig(cfg, configPath); err != nil {
				return err
			}
		}

		if err := createSystemdUnit(cfg, configPath, user, binary); err != nil {
			return fmt.Errorf("failed to create systemd unit: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("failed to enable service: %w", err)
		}
		cmd.Printf("Service enabled\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			cmd.Printf("Service started\n")
		}

		cmd.Printf("\nService: %s\n", serviceName)
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Backend: %s\n", cfg.Backend)
		cmd.Printf("Listening on: %s:%d\n", cfg.Server.Bind, cfg.Server.Port)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// serviceActionCmd wraps a plain systemctl verb
func serviceActionCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctlCommand(verb, serviceName)
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Minewatch service logs",
	Long: `Show Minewatch service logs using journalctl.

Examples:
  minewatch service logs
  minewatch service logs -f`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the Minewatch service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges (run with sudo)")
		}

		_ = runSystemctlCommand("stop", serviceName) // already stopped is fine
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}

		cmd.Printf("Minewatch service uninstalled\n")
		cmd.Printf("Note: configuration and data files were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(serviceActionCmd("start", "Start the Minewatch service"))
	serviceCmd.AddCommand(serviceActionCmd("stop", "Stop the Minewatch service"))
	serviceCmd.AddCommand(serviceActionCmd("restart", "Restart the Minewatch service"))
	serviceCmd.AddCommand(serviceActionCmd("status", "Show Minewatch service status"))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installServiceCmd.Flags().String("user", "minewatch", "User to run the service as")
	installServiceCmd.Flags().String("binary", "/usr/local/bin/minewatch", "Path to the minewatch binary")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// renderSystemdUnit returns the unit file for running the API server
func renderSystemdUnit(cfg *config.Config, configPath, user, binary string) string {
	unit := fmt.Sprintf(`[Unit]
Description=Minewatch telemetry API
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s up --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
`, user, user, binary, configPath, filepath.Dir(configPath))

	if cfg.Backend == config.BackendPebble && !cfg.Pebble.InMemory {
		unit += fmt.Sprintf("ReadWritePaths=%s\n", cfg.Pebble.DataDir)
	}

	return unit + `
[Install]
WantedBy=multi-user.target
`
}

// createSystemdUnit writes the systemd unit file
func createSystemdUnit(cfg *config.Config, configPath, user, binary string) error {
	return os.WriteFile(unitPath, []byte(renderSystemdUnit(cfg, configPath, user, binary)), 0600)
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
