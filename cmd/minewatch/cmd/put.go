/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/codec"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put [reading]",
	Short: "Store a reading",
	Long: `Store a reading given as canonical JSON text. With no argument a
synthetic reading is stored; "-" reads the text from stdin.

Examples:
  minewatch put
  minewatch put '{"GroundNum":"ABC_123_4567","HelmetNum":"0001","Spo2Level":97,"Temperature":36,"GasLevel":120,"HeartRate":72}'
  cat reading.json | minewatch put -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := container.Codec()

		var reading codec.WorkerReading
		if len(args) == 0 {
			reading = rc.Synthetic()
		} else {
			var err error
			if reading, err = decodeReading(cmd, args[0]); err != nil {
				return err
			}
		}

		readings, err := container.Readings(cmd.Context())
		if err != nil {
			return err
		}
		if err := readings.Insert(cmd.Context(), reading); err != nil {
			return err
		}
		cmd.Printf("Stored reading %s\n", reading.UniqueKey())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}

// decodeReading parses canonical reading text, read from stdin when arg is "-"
func decodeReading(cmd *cobra.Command, arg string) (codec.WorkerReading, error) {
	text := []byte(arg)
	if arg == "-" {
		var err error
		if text, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return codec.WorkerReading{}, err
		}
	}

	reading, err := container.Codec().DecodeText(text)
	if err != nil {
		return codec.WorkerReading{}, err
	}
	return reading, reading.Validate()
}
