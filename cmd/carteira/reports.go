package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carteira/internal/core"
	gsheet "carteira/internal/sheets/google"
)

var (
	reportMonth string
	trendMonths int
	recentLimit int
)

func selectedMonth() (core.MonthKey, error) {
	if reportMonth == "" {
		return svc.CurrentMonth(), nil
	}
	return core.ParseMonthKey(reportMonth)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show income, expenses, balance and category breakdown for a month.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		month, err := selectedMonth()
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), svc.Stats(cmd.Context(), month))
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Project recurring records, then show this month's summary and recent records.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if _, err := svc.EnsureProjected(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printStats(out, svc.Stats(ctx, svc.CurrentMonth()))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Recent")
		printRecords(out, svc.Recent(recentLimit), svc.Location())
		return nil
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show income and expenses for the last months.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		end, err := selectedMonth()
		if err != nil {
			return err
		}
		printTrend(cmd.OutOrStdout(), svc.Trend(cmd.Context(), end, trendMonths))
		return nil
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show top category, daily average and savings rate for a month.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		month, err := selectedMonth()
		if err != nil {
			return err
		}
		printInsights(cmd.OutOrStdout(), svc.Insights(cmd.Context(), month))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Append a month's report to the configured Google spreadsheet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		month, err := selectedMonth()
		if err != nil {
			return err
		}
		writer, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheetName)
		if err != nil {
			return err
		}
		ref, err := writer.WriteMonthReport(ctx, svc.Stats(ctx, month), svc.Insights(ctx, month))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", month, ref)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, dashboardCmd, trendCmd, insightsCmd, exportCmd)

	for _, c := range []*cobra.Command{statsCmd, trendCmd, insightsCmd, exportCmd} {
		c.Flags().StringVarP(&reportMonth, "month", "m", "", "Month (YYYY-MM), defaults to the current one.")
	}
	trendCmd.Flags().IntVar(&trendMonths, "months", 6, "Number of months ending at --month.")
	dashboardCmd.Flags().IntVarP(&recentLimit, "recent", "n", 5, "Number of recent records to show.")
}
