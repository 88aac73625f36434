/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print synthetic readings",
	Long: `Print synthetic readings without storing them, one per line.

The text format is the canonical JSON object a device sends; the attributes
format is the typed attribute map the table stores hold.

Examples:
  minewatch generate
  minewatch generate -n 10 --format attributes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")
		format, _ := cmd.Flags().GetString("format")
		if n < 0 {
			return fmt.Errorf("count must not be negative")
		}

		rc := container.Codec()
		out := cmd.OutOrStdout()
		for i := 0; i < n; i++ {
			reading := rc.Synthetic()

			var line []byte
			var err error
			switch format {
			case "text":
				line, err = rc.EncodeText(reading)
			case "attributes":
				line, err = json.Marshal(rc.EncodeAttributes(reading))
			default:
				return fmt.Errorf("unknown format %q (want text or attributes)", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntP("count", "n", 1, "Number of readings to print")
	generateCmd.Flags().String("format", "text", "Output format: text or attributes")
}
