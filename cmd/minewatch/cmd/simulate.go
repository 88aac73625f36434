/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/di"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emit synthetic readings into the table or onto MQTT",
	Long: `Emit synthetic readings at a fixed interval, either straight into the
readings table or published on MQTT for an ingest process to pick up. A zero
count runs until interrupted.

Examples:
  minewatch simulate --count 100 --interval 0
  minewatch simulate --sink mqtt --interval 500ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, _ := cmd.Flags().GetString("sink")
		sim := &container.Config().Simulator
		if cmd.Flags().Changed("count") {
			sim.Count, _ = cmd.Flags().GetInt("count")
		}
		if cmd.Flags().Changed("interval") {
			sim.Interval, _ = cmd.Flags().GetDuration("interval")
		}
		if sim.Count < 0 || sim.Interval < 0 {
			return fmt.Errorf("count and interval must not be negative")
		}
		applyMQTTFlags(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		simulator, err := container.Simulator(ctx, sink)
		if err != nil {
			return err
		}
		res, err := simulator.Run(ctx)
		cmd.Printf("Run %s: sent %d, failed %d\n", res.RunID, res.Sent, res.Failed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("sink", di.SinkStore, "Where readings go: store or mqtt")
	simulateCmd.Flags().IntP("count", "n", 0, "Number of readings to emit (0 runs until interrupted)")
	simulateCmd.Flags().Duration("interval", 0, "Pause between readings")
	addMQTTFlags(simulateCmd)
}
