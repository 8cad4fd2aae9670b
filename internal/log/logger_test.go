package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"carteira/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, Output: &buf})

	logger.Info("Projection complete", FieldCreated, 2)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "created=2") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentAMQP).Warn("Broker unavailable")
	if !strings.Contains(buf.String(), "component=amqp") {
		t.Fatalf("component not replaced: %q", buf.String())
	}
}

func TestLogFields(t *testing.T) {
	r := core.Record{
		ID:          "abc",
		OriginID:    "root",
		Kind:        core.Expense,
		CategoryID:  "6",
		Amount:      core.Money{Cents: 150000},
		OccurredOn:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Description: "Rent",
	}
	f := NewFields().
		WithOperation(OpProject).
		WithRecord(r).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldSeriesID] != "root" || f[FieldDate] != "2026-01-01" || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("ToSlice length mismatch")
	}
}
