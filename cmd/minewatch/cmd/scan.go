/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/codec"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print every reading in the table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := container.Readings(cmd.Context())
		if err != nil {
			return err
		}
		all, err := readings.All(cmd.Context())
		if err != nil {
			return err
		}
		return printReadings(cmd, all)
	},
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <key>",
	Short: "Print the readings stored under a unique key",
	Long: `Print the readings stored under a unique key, which is the ground
number followed by the helmet number.

Example:
  minewatch query ABC_123_45670001`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := container.Readings(cmd.Context())
		if err != nil {
			return err
		}
		found, err := readings.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no readings for key %s", args[0])
		}
		return printReadings(cmd, found)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queryCmd)
}

// printReadings writes one canonical JSON line per reading
func printReadings(cmd *cobra.Command, readings []codec.WorkerReading) error {
	rc := container.Codec()
	for _, r := range readings {
		line, err := rc.EncodeText(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(line))
	}
	return nil
}
