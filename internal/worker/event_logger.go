package worker

import (
	"context"
	"errors"

	"carteira/internal/amqp"
	applog "carteira/internal/log"
)

// EventLogger consumes ledger events and writes them to the log. It is the
// default consumer of the ledger event queue.
type EventLogger struct {
	logger *applog.Logger
}

func NewEventLogger(logger *applog.Logger) *EventLogger {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &EventLogger{logger: logger.WithComponent(applog.ComponentAMQP)}
}

// Handle logs one event. Events without a record id are rejected so the
// client nacks them.
func (l *EventLogger) Handle(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg == nil || msg.RecordID == "" {
		return errors.New("ledger event without record id")
	}
	l.logger.InfoContext(ctx, "Ledger event",
		applog.FieldOperation, msg.Op,
		"source", msg.Source,
		applog.FieldRecordID, msg.RecordID,
		applog.FieldSeriesID, msg.SeriesID,
		applog.FieldKind, msg.Kind,
		applog.FieldCategoryID, msg.CategoryID,
		applog.FieldAmountCents, msg.AmountCents,
		applog.FieldDate, msg.OccurredOn.Format("2006-01-02"))
	return nil
}
