/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/minewatch/pkg/table"
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage readings tables",
}

// tableCreateCmd represents the table create command
var tableCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a readings table",
	Long: `Create a table keyed by PrimKey and sorted by GroundNum. The name
defaults to the configured table.

Example:
  minewatch table create NightShift`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := readingsFor(cmd, args)
		if err != nil {
			return err
		}

		store, err := container.Store(cmd.Context())
		if err != nil {
			return err
		}
		spec := readings.Spec()
		if err := store.CreateTable(cmd.Context(), spec); err != nil {
			return err
		}
		cmd.Printf("Created table %s (partition key %s, sort key %s)\n", spec.Name, spec.PartitionKey, spec.SortKey)
		return nil
	},
}

// tableDeleteCmd represents the table delete command
var tableDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a table and every reading in it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := tableName(args)
		store, err := container.Store(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.DeleteTable(cmd.Context(), name); err != nil {
			return err
		}
		cmd.Printf("Deleted table %s\n", name)
		return nil
	},
}

// tableListCmd represents the table list command
var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := container.Store(cmd.Context())
		if err != nil {
			return err
		}
		names, err := store.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableCreateCmd)
	tableCmd.AddCommand(tableDeleteCmd)
	tableCmd.AddCommand(tableListCmd)
}

// tableName returns the table named on the command line or the configured one
func tableName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return container.Config().Table
}

// readingsFor returns the readings table named on the command line or the configured one
func readingsFor(cmd *cobra.Command, args []string) (*table.Readings, error) {
	store, err := container.Store(cmd.Context())
	if err != nil {
		return nil, err
	}
	return table.NewReadings(store, container.Codec(), tableName(args), table.WithLogger(container.Logger())), nil
}
