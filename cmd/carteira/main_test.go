package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"carteira/internal/core"
)

const testSeed = `
[[record]]
id = "1"
description = "Salary"
amount = "5000.00"
kind = "income"
category = "1"
date = "2025-12-05"
recurring_day = 5

[[record]]
id = "3"
description = "Rent"
amount = "1500.00"
kind = "expense"
category = "6"
date = "2025-12-01"
recurring_day = 1
`

func setupEnv(t *testing.T, backend string) {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.toml")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_BACKEND", backend)
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SEED_FILE", seedPath)
	t.Setenv("LEDGER_TIMEZONE", "UTC")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	prev := now
	now = func() time.Time { return time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := execute(context.Background(), args)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestStatsCommand(t *testing.T) {
	setupEnv(t, "memory")

	out, err := run(t, "stats", "--month", "2025-12")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"2025-12", "5000.00", "1500.00", "3500.00", "100.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestStatsCommandRejectsBadMonth(t *testing.T) {
	setupEnv(t, "memory")

	if _, err := run(t, "stats", "--month", "December"); err == nil {
		t.Fatal("expected error for malformed month")
	}
}

func TestSQLiteCommandsPersistAcrossRuns(t *testing.T) {
	setupEnv(t, "sqlite")

	out, err := run(t, "add",
		"--kind", "expense",
		"--amount", "45,90",
		"--description", "Pharmacy",
		"--category", "8",
		"--date", "2025-12-12")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "-45.90") {
		t.Fatalf("add output:\n%s", out)
	}

	out, err = run(t, "list", "--month", "2025-12")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Pharmacy") || !strings.Contains(out, "2025-12-12") {
		t.Fatalf("record not persisted:\n%s", out)
	}

	if _, err := run(t, "delete", "no-such-id"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete unknown id: %v", err)
	}
}

func TestUpdateCommand(t *testing.T) {
	setupEnv(t, "memory")

	out := mustRun(t, "update", "3", "--amount", "1600", "--description", "Rent 2026")
	if !strings.Contains(out, "-1600.00") || !strings.Contains(out, "Rent 2026") {
		t.Fatalf("update output:\n%s", out)
	}
	// Category was not passed and stays as it was.
	if !strings.Contains(out, "expense  6 ") {
		t.Fatalf("category changed:\n%s", out)
	}
}

func TestUpdateWithoutFlagsIsUsageError(t *testing.T) {
	setupEnv(t, "memory")

	if _, err := run(t, "update", "3"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	setupEnv(t, "memory")

	if _, err := run(t, "update", "missing", "--description", "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectCommandIsIdempotent(t *testing.T) {
	setupEnv(t, "sqlite")
	mustRun(t, "add", "--kind", "expense", "--amount", "1500", "--description", "Rent",
		"--category", "6", "--date", "2025-12-01", "--recurring-day", "1")

	out := mustRun(t, "project")
	if !strings.Contains(out, "projected 1 record(s) into 2026-01") || !strings.Contains(out, "2026-01-01") {
		t.Fatalf("first project:\n%s", out)
	}
	out = mustRun(t, "project")
	if !strings.Contains(out, "projected 0 record(s) into 2026-01") {
		t.Fatalf("second project:\n%s", out)
	}
}

func TestDashboardProjectsOnce(t *testing.T) {
	setupEnv(t, "sqlite")
	mustRun(t, "add", "--kind", "income", "--amount", "5000", "--description", "Salary",
		"--category", "1", "--date", "2025-12-05", "--recurring-day", "5")

	for i := 0; i < 2; i++ {
		out := mustRun(t, "dashboard")
		if !strings.Contains(out, "2026-01") || !strings.Contains(out, "5000.00") || !strings.Contains(out, "Recent") {
			t.Fatalf("dashboard run %d:\n%s", i+1, out)
		}
	}

	out := mustRun(t, "list", "--month", "2026-01")
	if n := strings.Count(out, "Salary"); n != 1 {
		t.Fatalf("expected 1 january salary, got %d:\n%s", n, out)
	}
}

func TestDashboardRecentLimit(t *testing.T) {
	setupEnv(t, "memory")

	out := mustRun(t, "dashboard", "--recent", "1")
	recent := out[strings.Index(out, "Recent"):]
	if !strings.Contains(recent, "2026-01-05") || strings.Contains(recent, "Rent") {
		t.Fatalf("recent section:\n%s", recent)
	}
}

func TestCopyPreviousDuplicatesOnEveryRun(t *testing.T) {
	setupEnv(t, "sqlite")
	mustRun(t, "add", "--kind", "expense", "--amount", "450", "--description", "Groceries",
		"--category", "4", "--date", "2025-12-10")

	for i := 0; i < 2; i++ {
		out := mustRun(t, "copy-previous")
		if !strings.Contains(out, "copied 1 record(s) from 2025-12 into 2026-01") {
			t.Fatalf("copy run %d:\n%s", i+1, out)
		}
	}

	out := mustRun(t, "list", "--month", "2026-01")
	if n := strings.Count(out, "Groceries"); n != 2 {
		t.Fatalf("expected 2 january copies, got %d:\n%s", n, out)
	}
}

func TestTrendCommand(t *testing.T) {
	setupEnv(t, "memory")

	out := mustRun(t, "trend", "--month", "2026-01", "--months", "2")
	for _, want := range []string{"2025-12", "2026-01", "5000.00", "3500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2025-11") {
		t.Errorf("trend longer than requested:\n%s", out)
	}
}

func TestInsightsCommand(t *testing.T) {
	setupEnv(t, "memory")

	out := mustRun(t, "insights", "--month", "2025-12")
	for _, want := range []string{"6 (1500.00)", "48.39", "3500.00 (70.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestListFilters(t *testing.T) {
	setupEnv(t, "memory")

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{"all kinds", []string{"list"}, []string{"Salary", "Rent"}, nil},
		{"income only", []string{"list", "--kind", "income"}, []string{"Salary"}, []string{"Rent"}},
		{"expense only", []string{"list", "--kind", "EXPENSE"}, []string{"Rent"}, []string{"Salary"}},
		{"limit keeps most recent", []string{"list", "--limit", "1"}, []string{"Salary"}, []string{"Rent"}},
		{"month without records", []string{"list", "--month", "2025-11"}, []string{"no records"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustRun(t, tt.args...)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestListRejectsUnknownKind(t *testing.T) {
	setupEnv(t, "memory")

	if _, err := run(t, "list", "--kind", "transfer"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestConfigErrorsSurface(t *testing.T) {
	setupEnv(t, "memory")
	t.Setenv("DEDUP_STRATEGY", "fuzzy")

	if _, err := run(t, "stats"); err == nil || !strings.Contains(err.Error(), "dedup strategy") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestPrintInsights(t *testing.T) {
	var buf bytes.Buffer
	printInsights(&buf, core.MonthInsights{
		Month:             core.MonthKey{Year: 2025, Month: time.December},
		TopCategory:       &core.CategoryAmount{CategoryID: "6", Amount: core.Money{Cents: 150000}},
		DailyAverage:      decimal.RequireFromString("48.39"),
		Savings:           core.Money{Cents: 350000},
		SavingsPercentage: decimal.NewFromInt(70),
	})
	out := buf.String()
	for _, want := range []string{"6 (1500.00)", "48.39", "3500.00 (70.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, nil, time.UTC)
	if strings.TrimSpace(buf.String()) != "no records" {
		t.Fatalf("got %q", buf.String())
	}
}
