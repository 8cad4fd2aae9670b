package amqp

import (
	"encoding/json"
	"time"

	"carteira/internal/core"
)

// LedgerEventMessage describes one committed change to the ledger.
// It carries the full record so consumers need no access to the store.
type LedgerEventMessage struct {
	Op           string    `json:"op"`
	Source       string    `json:"source"`
	RecordID     string    `json:"record_id"`
	SeriesID     string    `json:"series_id"`
	Description  string    `json:"description"`
	Kind         string    `json:"kind"`
	CategoryID   string    `json:"category_id"`
	AmountCents  int64     `json:"amount_cents"`
	OccurredOn   time.Time `json:"occurred_on"`
	RecurringDay int       `json:"recurring_day,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds the message for a change to r.
func NewLedgerEventMessage(op, source string, r core.Record) *LedgerEventMessage {
	msg := &LedgerEventMessage{
		Op:          op,
		Source:      source,
		RecordID:    r.ID,
		SeriesID:    r.SeriesID(),
		Description: r.Description,
		Kind:        string(r.Kind),
		CategoryID:  r.CategoryID,
		AmountCents: r.Amount.Cents,
		OccurredOn:  r.OccurredOn,
		Timestamp:   time.Now(),
	}
	if r.Recurrence != nil {
		msg.RecurringDay = r.Recurrence.DayOfMonth
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
