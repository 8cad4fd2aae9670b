package sheets

import (
	"context"

	"carteira/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a month's figures to an external sheet.
	ReportWriter interface {
		// WriteMonthReport returns a reference to the written range.
		WriteMonthReport(ctx context.Context, stats core.MonthlyStats, insights core.MonthInsights) (ref string, err error)
	}
)
