package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create this month's occurrence of every recurring record that lacks one.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		created, err := svc.EnsureProjected(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "projected %d record(s) into %s\n", len(created), svc.CurrentMonth())
		printRecords(cmd.OutOrStdout(), created, svc.Location())
		return nil
	},
}

var copyPreviousCmd = &cobra.Command{
	Use:   "copy-previous",
	Short: "Copy every record of last month into this month.",
	Long: `Copy every record of last month into this month, keeping the day of month.
Running it twice copies twice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		created, err := svc.CopyFromPreviousMonth(cmd.Context())
		if err != nil {
			return err
		}
		month := svc.CurrentMonth()
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d record(s) from %s into %s\n", len(created), month.Prev(), month)
		printRecords(cmd.OutOrStdout(), created, svc.Location())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd, copyPreviousCmd)
}
