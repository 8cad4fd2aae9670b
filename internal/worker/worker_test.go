package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/core"
	applog "carteira/internal/log"
)

type fakeLedger struct {
	mu      sync.Mutex
	month   core.MonthKey
	calls   int
	err     error
	created []core.Record
}

func (f *fakeLedger) CurrentMonth() core.MonthKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.month
}

func (f *fakeLedger) setMonth(m core.MonthKey) {
	f.mu.Lock()
	f.month = m
	f.mu.Unlock()
}

func (f *fakeLedger) EnsureProjected(context.Context) ([]core.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.created, f.err
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLedger) Stats(_ context.Context, month core.MonthKey) core.MonthlyStats {
	return core.MonthlyStats{Month: month, TotalExpense: core.Money{Cents: 100}}
}

func (f *fakeLedger) Insights(_ context.Context, month core.MonthKey) core.MonthInsights {
	return core.MonthInsights{Month: month}
}

type fakeReports struct {
	months []core.MonthKey
	err    error
}

func (f *fakeReports) WriteMonthReport(_ context.Context, stats core.MonthlyStats, _ core.MonthInsights) (string, error) {
	f.months = append(f.months, stats.Month)
	return "Reports!A1:G4", f.err
}

func quietLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker, Output: buf})
}

var (
	dec2025 = core.MonthKey{Year: 2025, Month: time.December}
	jan2026 = core.MonthKey{Year: 2026, Month: time.January}
)

func TestProjectionWorkerRunsUntilCancelled(t *testing.T) {
	ledger := &fakeLedger{month: jan2026}
	var buf bytes.Buffer
	w := NewProjectionWorker(ledger, nil, 5*time.Millisecond, quietLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ledger.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("worker ticked %d times", ledger.callCount())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestProjectionWorkerRejectsBadSetup(t *testing.T) {
	if err := NewProjectionWorker(nil, nil, time.Second, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error without ledger")
	}
	if err := NewProjectionWorker(&fakeLedger{}, nil, 0, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestProjectionWorkerExportsClosedMonth(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{month: dec2025}
	reports := &fakeReports{}
	var buf bytes.Buffer
	w := NewProjectionWorker(ledger, reports, time.Hour, quietLogger(&buf))

	w.tick(ctx)
	w.tick(ctx)
	if len(reports.months) != 0 {
		t.Fatalf("exported before rollover: %v", reports.months)
	}

	ledger.setMonth(jan2026)
	w.tick(ctx)
	w.tick(ctx)

	if len(reports.months) != 1 || reports.months[0] != dec2025 {
		t.Fatalf("exports = %v, want [2025-12]", reports.months)
	}
	if ledger.callCount() != 4 {
		t.Fatalf("projection ran %d times, want 4", ledger.callCount())
	}
	if !strings.Contains(buf.String(), "Reports!A1:G4") {
		t.Fatalf("export not logged: %s", buf.String())
	}
}

func TestProjectionWorkerKeepsGoingOnErrors(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{month: dec2025, err: errors.New("journal unavailable")}
	reports := &fakeReports{err: errors.New("quota exceeded")}
	var buf bytes.Buffer
	w := NewProjectionWorker(ledger, reports, time.Hour, quietLogger(&buf))

	w.tick(ctx)
	ledger.setMonth(jan2026)
	w.tick(ctx)

	out := buf.String()
	if !strings.Contains(out, "journal unavailable") || !strings.Contains(out, "quota exceeded") {
		t.Fatalf("errors not logged: %s", out)
	}
	if ledger.callCount() != 2 {
		t.Fatalf("projection ran %d times", ledger.callCount())
	}
}

func TestEventLoggerHandle(t *testing.T) {
	var buf bytes.Buffer
	l := NewEventLogger(quietLogger(&buf))

	r := core.Record{
		ID:          "abc",
		Description: "Rent",
		Kind:        core.Expense,
		CategoryID:  "6",
		Amount:      core.Money{Cents: 150000},
		OccurredOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := l.Handle(context.Background(), amqp.NewLedgerEventMessage("added", "projection", r)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"component=amqp", "operation=added", "source=projection", "id=abc", "date=2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	if err := l.Handle(context.Background(), &amqp.LedgerEventMessage{Op: "added"}); err == nil {
		t.Fatal("expected error for event without record id")
	}
}
