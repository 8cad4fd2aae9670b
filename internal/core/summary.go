package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount is an expense total for one category.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// CategoryShare is a CategoryAmount with its percentage of the month's expenses.
type CategoryShare struct {
	CategoryID string
	Amount     Money
	Percentage decimal.Decimal
}

// MonthlyStats summarises one calendar month. Balance may be negative.
// CategoryBreakdown only covers expenses, in order of first occurrence.
type MonthlyStats struct {
	Month             MonthKey
	TotalIncome       Money
	TotalExpense      Money
	Balance           Money
	CategoryBreakdown []CategoryAmount
}

// Shares returns the breakdown sorted by amount, largest first, with each
// category's percentage of TotalExpense. A month without expenses has no shares.
func (s MonthlyStats) Shares() []CategoryShare {
	if s.TotalExpense.Cents <= 0 {
		return []CategoryShare{}
	}
	total := decimal.NewFromInt(s.TotalExpense.Cents)
	hundred := decimal.NewFromInt(100)
	out := make([]CategoryShare, 0, len(s.CategoryBreakdown))
	for _, ca := range s.CategoryBreakdown {
		out = append(out, CategoryShare{
			CategoryID: ca.CategoryID,
			Amount:     ca.Amount,
			Percentage: decimal.NewFromInt(ca.Amount.Cents).Mul(hundred).Div(total).Round(1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// MonthTrend is one point of a multi-month income/expense series.
type MonthTrend struct {
	Month   MonthKey
	Income  Money
	Expense Money
	Balance Money
}

// MonthInsights holds the derived figures shown on the reports screen.
type MonthInsights struct {
	Month             MonthKey
	TopCategory       *CategoryAmount
	DailyAverage      decimal.Decimal
	Savings           Money
	SavingsPercentage decimal.Decimal
}
