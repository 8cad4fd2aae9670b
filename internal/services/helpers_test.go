package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/ledger"
)

var brt = time.FixedZone("BRT", -3*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, brt)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func rec(id string, kind core.Kind, cents int64, cat string, on time.Time, recurringDay int) core.Record {
	r := core.Record{
		ID:          id,
		Description: fmt.Sprintf("%s %s", kind, id),
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		CategoryID:  cat,
		OccurredOn:  on,
	}
	if recurringDay > 0 {
		r.Recurrence = &core.Recurrence{DayOfMonth: recurringDay}
	}
	return r
}

// scenarioRecords is the December 2025 salary and rent pair.
func scenarioRecords() []core.Record {
	return []core.Record{
		rec("1", core.Income, 500000, "1", day(2025, time.December, 5), 5),
		rec("3", core.Expense, 150000, "6", day(2025, time.December, 1), 1),
	}
}

func inMonth(records []core.Record, month core.MonthKey) []core.Record {
	var out []core.Record
	for _, r := range records {
		if month.Contains(r.OccurredOn, brt) {
			out = append(out, r)
		}
	}
	return out
}

func mustAdd(t *testing.T, s *ledger.Store, r core.Record) core.Record {
	t.Helper()
	added, err := s.Add(context.Background(), core.NewRecord{
		Description: r.Description,
		Amount:      r.Amount,
		Kind:        r.Kind,
		CategoryID:  r.CategoryID,
		OccurredOn:  r.OccurredOn,
		Recurrence:  r.Recurrence,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return added
}
