/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key> <groundNum>",
	Short: "Delete a reading",
	Long: `Delete the reading stored under a unique key and ground number.
Deleting a reading that does not exist is not an error.

Example:
  minewatch delete ABC_123_45670001 ABC_123_4567`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := container.Readings(cmd.Context())
		if err != nil {
			return err
		}
		if err := readings.Delete(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Deleted reading %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
