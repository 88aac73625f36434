/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store readings published on MQTT",
	Long: `Subscribe to the configured MQTT topic and store every valid reading
in the readings table, creating the table if needed. Malformed payloads are
logged and dropped. Runs until interrupted.

Example:
  minewatch ingest --topic site-7/helmets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyMQTTFlags(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		in, err := container.Ingestor(ctx)
		if err != nil {
			return err
		}
		if err := in.Run(ctx); err != nil {
			return err
		}

		st := in.Stats()
		cmd.Printf("Received %d, stored %d, rejected %d, failed %d\n", st.Received, st.Stored, st.Rejected, st.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	addMQTTFlags(ingestCmd)
}

func addMQTTFlags(cmd *cobra.Command) {
	cmd.Flags().String("broker", "", "MQTT broker URL")
	cmd.Flags().String("topic", "", "MQTT topic for readings")
}

// applyMQTTFlags overrides the configured MQTT settings with explicit flags
func applyMQTTFlags(cmd *cobra.Command) {
	mqtt := &container.Config().MQTT
	if cmd.Flags().Changed("broker") {
		mqtt.Broker, _ = cmd.Flags().GetString("broker")
	}
	if cmd.Flags().Changed("topic") {
		mqtt.Topic, _ = cmd.Flags().GetString("topic")
	}
}
