package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

func TestTrend(t *testing.T) {
	ctx := context.Background()
	records := append(scenarioRecords(),
		rec("n", core.Expense, 20000, "4", day(2025, time.November, 12), 0),
	)
	svc, _ := newTestService(records, nil, day(2026, time.January, 15))

	trend := svc.Trend(ctx, jan2026, 3)
	if len(trend) != 3 {
		t.Fatalf("got %d months", len(trend))
	}
	wantMonths := []string{"2025-11", "2025-12", "2026-01"}
	for i, m := range wantMonths {
		if trend[i].Month.String() != m {
			t.Fatalf("month %d = %s, want %s", i, trend[i].Month, m)
		}
	}
	if trend[0].Expense.Cents != 20000 || trend[0].Balance.Cents != -20000 {
		t.Fatalf("november = %+v", trend[0])
	}
	if trend[1].Income.Cents != 500000 || trend[1].Balance.Cents != 350000 {
		t.Fatalf("december = %+v", trend[1])
	}
	if trend[2].Income.Cents != 0 || trend[2].Expense.Cents != 0 {
		t.Fatalf("january = %+v", trend[2])
	}

	if got := svc.Trend(ctx, jan2026, 0); len(got) != 0 {
		t.Fatalf("expected empty trend, got %d", len(got))
	}
}

func TestBuildInsights(t *testing.T) {
	stats := core.MonthlyStats{
		Month:        dec2025,
		TotalIncome:  core.Money{Cents: 500000},
		TotalExpense: core.Money{Cents: 186000},
		Balance:      core.Money{Cents: 314000},
		CategoryBreakdown: []core.CategoryAmount{
			{CategoryID: "4", Amount: core.Money{Cents: 36000}},
			{CategoryID: "6", Amount: core.Money{Cents: 150000}},
		},
	}

	in := BuildInsights(stats)
	if in.TopCategory == nil || in.TopCategory.CategoryID != "6" {
		t.Fatalf("top category = %+v", in.TopCategory)
	}
	// 1860.00 / 31 days
	if !in.DailyAverage.Equal(decimal.RequireFromString("60")) {
		t.Errorf("daily average = %s", in.DailyAverage)
	}
	if in.Savings.Cents != 314000 {
		t.Errorf("savings = %d", in.Savings.Cents)
	}
	if !in.SavingsPercentage.Equal(decimal.RequireFromString("62.8")) {
		t.Errorf("savings percentage = %s", in.SavingsPercentage)
	}
}

func TestBuildInsightsWithoutIncomeOrExpense(t *testing.T) {
	in := BuildInsights(core.MonthlyStats{Month: dec2025})
	if in.TopCategory != nil {
		t.Errorf("expected no top category, got %+v", in.TopCategory)
	}
	if !in.DailyAverage.IsZero() || !in.SavingsPercentage.IsZero() {
		t.Errorf("expected zero figures, got %+v", in)
	}
}

func TestInsightsUsesStats(t *testing.T) {
	svc, _ := newTestService(scenarioRecords(), nil, day(2026, time.January, 15))
	in := svc.Insights(context.Background(), dec2025)
	if in.TopCategory == nil || in.TopCategory.Amount.Cents != 150000 {
		t.Fatalf("top category = %+v", in.TopCategory)
	}
	if !in.SavingsPercentage.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("savings percentage = %s", in.SavingsPercentage)
	}
}
