package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carteira/internal/core"
	applog "carteira/internal/log"
	"carteira/internal/sheets"
)

// Ledger is the part of services.LedgerService the worker drives.
type Ledger interface {
	CurrentMonth() core.MonthKey
	EnsureProjected(ctx context.Context) ([]core.Record, error)
	Stats(ctx context.Context, month core.MonthKey) core.MonthlyStats
	Insights(ctx context.Context, month core.MonthKey) core.MonthInsights
}

// ProjectionWorker keeps recurring records materialized for the current
// month. When a report writer is set it also exports the month that just
// ended once the calendar rolls over.
type ProjectionWorker struct {
	ledger   Ledger
	reports  sheets.ReportWriter
	interval time.Duration
	logger   *applog.Logger

	lastMonth core.MonthKey
}

func NewProjectionWorker(ledger Ledger, reports sheets.ReportWriter, interval time.Duration, logger *applog.Logger) *ProjectionWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ProjectionWorker{
		ledger:   ledger,
		reports:  reports,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Run projects immediately and then on every interval tick until ctx is
// cancelled. Tick failures are logged and retried on the next tick.
func (w *ProjectionWorker) Run(ctx context.Context) error {
	if w.ledger == nil {
		return errors.New("projection worker has no ledger")
	}
	if w.interval <= 0 {
		return fmt.Errorf("invalid projection interval %v", w.interval)
	}

	w.logger.InfoContext(ctx, "Projection worker started", "interval", w.interval.String())
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Projection worker stopping", applog.FieldOperation, applog.OpShutdown)
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ProjectionWorker) tick(ctx context.Context) {
	month := w.ledger.CurrentMonth()

	if w.lastMonth != (core.MonthKey{}) && w.lastMonth != month {
		w.exportMonth(ctx, w.lastMonth)
	}
	w.lastMonth = month

	created, err := w.ledger.EnsureProjected(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Projection failed",
			applog.FieldOperation, applog.OpProject,
			applog.FieldMonth, month.String(),
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase)
		return
	}
	if len(created) > 0 {
		w.logger.InfoContext(ctx, "Projected recurring records",
			applog.FieldMonth, month.String(),
			applog.FieldCreated, len(created))
	}
}

func (w *ProjectionWorker) exportMonth(ctx context.Context, month core.MonthKey) {
	if w.reports == nil {
		return
	}
	ref, err := w.reports.WriteMonthReport(ctx, w.ledger.Stats(ctx, month), w.ledger.Insights(ctx, month))
	if err != nil {
		w.logger.ErrorContext(ctx, "Month report export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldMonth, month.String(),
			applog.FieldError, err)
		return
	}
	w.logger.InfoContext(ctx, "Exported closed month",
		applog.FieldMonth, month.String(),
		applog.FieldSheetsRef, ref)
}
