package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"carteira/internal/core"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printRecords(w io.Writer, records []core.Record, loc *time.Location) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tKIND\tCATEGORY\tAMOUNT\tRECURRING\tDESCRIPTION")
	for _, r := range records {
		recurring := ""
		if r.Recurrence != nil {
			recurring = fmt.Sprintf("day %d", r.Recurrence.DayOfMonth)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.OccurredOn.In(loc).Format("2006-01-02"),
			r.Kind,
			r.CategoryID,
			signed(r),
			recurring,
			r.Description)
	}
	tw.Flush()
}

func signed(r core.Record) string {
	if r.Kind == core.Expense {
		return "-" + r.Amount.String()
	}
	return "+" + r.Amount.String()
}

func printStats(w io.Writer, st core.MonthlyStats) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Month\t%s\n", st.Month)
	fmt.Fprintf(tw, "Income\t%s\n", st.TotalIncome)
	fmt.Fprintf(tw, "Expense\t%s\n", st.TotalExpense)
	fmt.Fprintf(tw, "Balance\t%s\n", st.Balance)
	tw.Flush()

	shares := st.Shares()
	if len(shares) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
	for _, s := range shares {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", s.CategoryID, s.Amount, s.Percentage.StringFixed(1))
	}
	tw.Flush()
}

func printTrend(w io.Writer, trend []core.MonthTrend) {
	tw := newTable(w)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tBALANCE")
	for _, t := range trend {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Month, t.Income, t.Expense, t.Balance)
	}
	tw.Flush()
}

func printInsights(w io.Writer, in core.MonthInsights) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Month\t%s\n", in.Month)
	if in.TopCategory != nil {
		fmt.Fprintf(tw, "Top category\t%s (%s)\n", in.TopCategory.CategoryID, in.TopCategory.Amount)
	} else {
		fmt.Fprintf(tw, "Top category\t-\n")
	}
	fmt.Fprintf(tw, "Daily average\t%s\n", in.DailyAverage.StringFixed(2))
	fmt.Fprintf(tw, "Savings\t%s (%s%%)\n", in.Savings, in.SavingsPercentage.StringFixed(1))
	tw.Flush()
}
