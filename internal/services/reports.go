package services

import (
	"context"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// Trend returns income and expense totals for the months ending at end,
// oldest first.
func (s *LedgerService) Trend(ctx context.Context, end core.MonthKey, months int) []core.MonthTrend {
	if months <= 0 {
		return []core.MonthTrend{}
	}
	keys := make([]core.MonthKey, months)
	k := end
	for i := months - 1; i >= 0; i-- {
		keys[i] = k
		k = k.Prev()
	}

	out := make([]core.MonthTrend, 0, months)
	for _, key := range keys {
		st := s.Stats(ctx, key)
		out = append(out, core.MonthTrend{
			Month:   key,
			Income:  st.TotalIncome,
			Expense: st.TotalExpense,
			Balance: st.Balance,
		})
	}
	return out
}

// Insights derives the report figures for month: the largest expense
// category, average spending per calendar day and savings relative to income.
func (s *LedgerService) Insights(ctx context.Context, month core.MonthKey) core.MonthInsights {
	return BuildInsights(s.Stats(ctx, month))
}

// BuildInsights computes MonthInsights from already aggregated stats.
func BuildInsights(st core.MonthlyStats) core.MonthInsights {
	in := core.MonthInsights{
		Month:             st.Month,
		Savings:           st.Balance,
		DailyAverage:      st.TotalExpense.Decimal().Div(decimal.NewFromInt(int64(st.Month.Days()))).Round(2),
		SavingsPercentage: decimal.Zero,
	}
	if shares := st.Shares(); len(shares) > 0 {
		in.TopCategory = &core.CategoryAmount{CategoryID: shares[0].CategoryID, Amount: shares[0].Amount}
	}
	if st.TotalIncome.Cents > 0 {
		in.SavingsPercentage = decimal.NewFromInt(st.Balance.Cents).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(st.TotalIncome.Cents)).
			Round(1)
	}
	return in
}
