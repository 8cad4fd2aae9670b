package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"carteira/internal/core"
	ports "carteira/internal/sheets"
)

const defaultReportSheet = "Reports"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// New creates a client writing reports to sheetName (default "Reports") of
// spreadsheetID. Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if sheetName == "" {
		sheetName = defaultReportSheet
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// WriteMonthReport appends the month's summary and category shares below the
// existing content of the report sheet.
func (c *Client) WriteMonthReport(ctx context.Context, stats core.MonthlyStats, insights core.MonthInsights) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1", c.reportSheet)
	vr := &gsheet.ValueRange{Values: monthRows(stats, insights)}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to sheet %s: %w", c.reportSheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Month report written",
		"month", stats.Month.String(),
		"rows", len(vr.Values),
		"sheets_ref", ref)
	return ref, nil
}

// monthRows lays out one report block: a summary header and row, then one
// row per expense category ordered by amount.
func monthRows(stats core.MonthlyStats, insights core.MonthInsights) [][]any {
	top := ""
	if insights.TopCategory != nil {
		top = insights.TopCategory.CategoryID
	}

	rows := [][]any{
		{"Month", "Income", "Expense", "Balance", "Savings %", "Daily average", "Top category"},
		{
			stats.Month.String(),
			stats.TotalIncome.String(),
			stats.TotalExpense.String(),
			stats.Balance.String(),
			insights.SavingsPercentage.StringFixed(1),
			insights.DailyAverage.StringFixed(2),
			top,
		},
		{"Category", "Amount", "Share %"},
	}
	for _, s := range stats.Shares() {
		rows = append(rows, []any{s.CategoryID, s.Amount.String(), s.Percentage.StringFixed(1)})
	}
	return rows
}
