/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the Minewatch REST API server on the configured table store.

Every /api/v1 route requires the X-API-Key header unless the API key is empty.
An api_key of "auto" generates a key for this process and logs it once.
Prometheus metrics are served unauthenticated on /metrics and the API
documentation on /swagger/.

Examples:
  minewatch serve
  minewatch serve --port 9090 --api-key mysecretkey --backend redis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	cmd.Flags().String("api-key", "", `API key for authentication ("auto" generates one)`)
}

// applyServerFlags overrides the configured server settings with explicit flags
func applyServerFlags(cmd *cobra.Command) {
	server := &container.Config().Server
	if cmd.Flags().Changed("port") {
		server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		server.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		server.APIKey, _ = cmd.Flags().GetString("api-key")
	}
}

// serve runs the API server until ctx is cancelled
func serve(ctx context.Context) error {
	server, err := container.Server(ctx)
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx)
}
