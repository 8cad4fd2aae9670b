package log

import "carteira/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldMonth       = "month"
	FieldRecordID    = "id"
	FieldSeriesID    = "series_id"
	FieldKind        = "kind"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldDate        = "date"
	FieldCreated     = "created"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpProject  = "project"
	OpCopy     = "copy_previous"
	OpExport   = "export"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithMonth(m core.MonthKey) LogFields {
	f[FieldMonth] = m.String()
	return f
}

// WithRecord adds the identifying fields of a ledger record.
func (f LogFields) WithRecord(r core.Record) LogFields {
	f[FieldRecordID] = r.ID
	f[FieldSeriesID] = r.SeriesID()
	f[FieldKind] = string(r.Kind)
	f[FieldCategoryID] = r.CategoryID
	f[FieldAmountCents] = r.Amount.Cents
	f[FieldDate] = r.OccurredOn.Format("2006-01-02")
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
