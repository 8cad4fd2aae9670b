package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carteira/internal/core"
)

var errUsage = errors.New("usage")

var (
	addKind, addAmount, addDescription, addCategory, addDate string

	addRecurringDay int

	updDescription, updAmount, updCategory string

	listMonth, listKind string
	listLimit           int
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an income or expense.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, err := newRecordFromFlags()
		if err != nil {
			return err
		}
		r, err := svc.Add(cmd.Context(), in)
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), []core.Record{r}, svc.Location())
		return nil
	},
}

func newRecordFromFlags() (core.NewRecord, error) {
	kind, err := core.ParseKind(addKind)
	if err != nil {
		return core.NewRecord{}, err
	}
	amount, err := core.ParseMoney(addAmount)
	if err != nil {
		return core.NewRecord{}, fmt.Errorf("amount %q: %w", addAmount, err)
	}
	on := svc.Today()
	if addDate != "" {
		on, err = core.ParseTimestamp(addDate, svc.Location())
		if err != nil {
			return core.NewRecord{}, err
		}
	}
	in := core.NewRecord{
		Description: addDescription,
		Amount:      amount,
		Kind:        kind,
		CategoryID:  addCategory,
		OccurredOn:  on,
	}
	if addRecurringDay != 0 {
		in.Recurrence = &core.Recurrence{DayOfMonth: addRecurringDay}
	}
	return in, nil
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change the description, amount or category of a record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch core.RecordPatch
		if cmd.Flags().Changed("description") {
			patch.Description = &updDescription
		}
		if cmd.Flags().Changed("category") {
			patch.CategoryID = &updCategory
		}
		if cmd.Flags().Changed("amount") {
			amount, err := core.ParseMoney(updAmount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", updAmount, err)
			}
			patch.Amount = &amount
		}
		if patch.IsEmpty() {
			return fmt.Errorf("%w: nothing to update", errUsage)
		}

		r, err := svc.Update(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), []core.Record{r}, svc.Location())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, most recent first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		keep, err := listFilter()
		if err != nil {
			return err
		}
		records := svc.Recent(-1)
		filtered := records[:0]
		for _, r := range records {
			if keep(r) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
		if listLimit > 0 && listLimit < len(records) {
			records = records[:listLimit]
		}
		printRecords(cmd.OutOrStdout(), records, svc.Location())
		return nil
	},
}

// listFilter combines the --month and --kind flags. An empty or "all" kind
// keeps both kinds.
func listFilter() (func(core.Record) bool, error) {
	var (
		month    core.MonthKey
		hasMonth bool
		kind     core.Kind
	)
	if listMonth != "" {
		m, err := core.ParseMonthKey(listMonth)
		if err != nil {
			return nil, err
		}
		month, hasMonth = m, true
	}
	if listKind != "" && !strings.EqualFold(listKind, "all") {
		k, err := core.ParseKind(listKind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		kind = k
	}
	loc := svc.Location()
	return func(r core.Record) bool {
		if hasMonth && !month.Contains(r.OccurredOn, loc) {
			return false
		}
		return kind == "" || r.Kind == kind
	}, nil
}

func init() {
	rootCmd.AddCommand(addCmd, updateCmd, deleteCmd, listCmd)

	addCmd.Flags().StringVar(&addKind, "kind", string(core.Expense), "income or expense.")
	addCmd.Flags().StringVarP(&addAmount, "amount", "a", "", "Amount, e.g. 12.50.")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Description.")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Category id.")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date (YYYY-MM-DD or RFC3339), defaults to today.")
	addCmd.Flags().IntVar(&addRecurringDay, "recurring-day", 0, "Repeat monthly on this day (1-31).")
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("description")

	updateCmd.Flags().StringVarP(&updDescription, "description", "d", "", "New description.")
	updateCmd.Flags().StringVarP(&updAmount, "amount", "a", "", "New amount.")
	updateCmd.Flags().StringVarP(&updCategory, "category", "c", "", "New category id.")

	listCmd.Flags().StringVarP(&listMonth, "month", "m", "", "Only records of this month (YYYY-MM).")
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "all", "all, income or expense.")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most this many records.")
}
