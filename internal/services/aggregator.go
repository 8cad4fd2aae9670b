package services

import (
	"time"

	"carteira/internal/core"
)

// ComputeStats totals the records that fall in month, bucketing by the wall
// clock of loc. Only expenses feed the category breakdown, which keeps the
// order in which each category first appears in records.
//
// Percentages derived from the breakdown must guard against a zero
// TotalExpense; MonthlyStats.Shares does.
func ComputeStats(records []core.Record, month core.MonthKey, loc *time.Location) core.MonthlyStats {
	stats := core.MonthlyStats{
		Month:             month,
		CategoryBreakdown: []core.CategoryAmount{},
	}
	position := map[string]int{}

	for _, r := range records {
		if !month.Contains(r.OccurredOn, loc) {
			continue
		}
		switch r.Kind {
		case core.Income:
			stats.TotalIncome = stats.TotalIncome.Add(r.Amount)
		case core.Expense:
			stats.TotalExpense = stats.TotalExpense.Add(r.Amount)
			if i, ok := position[r.CategoryID]; ok {
				stats.CategoryBreakdown[i].Amount = stats.CategoryBreakdown[i].Amount.Add(r.Amount)
				continue
			}
			position[r.CategoryID] = len(stats.CategoryBreakdown)
			stats.CategoryBreakdown = append(stats.CategoryBreakdown, core.CategoryAmount{
				CategoryID: r.CategoryID,
				Amount:     r.Amount,
			})
		}
	}

	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpense)
	return stats
}
