package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const maxDescriptionLen = 200

type (
	// Kind tells whether a record adds to or subtracts from the balance.
	Kind string

	Money struct {
		Cents int64
	}

	// Recurrence marks a record as a monthly obligation due on DayOfMonth.
	Recurrence struct {
		DayOfMonth int
	}

	Record struct {
		ID          string
		Description string
		Amount      Money
		Kind        Kind
		CategoryID  string
		OccurredOn  time.Time
		Recurrence  *Recurrence
		OriginID    string // Root record of the series this record was copied from
	}

	// NewRecord is the input for creating a record. The store assigns the ID.
	NewRecord struct {
		Description string
		Amount      Money
		Kind        Kind
		CategoryID  string
		OccurredOn  time.Time
		Recurrence  *Recurrence
		OriginID    string
	}

	// RecordPatch holds the fields that may change after creation.
	// Nil fields are left untouched.
	RecordPatch struct {
		Description *string
		Amount      *Money
		CategoryID  *string
	}
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidKind         = errors.New("invalid kind")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidRecurringDay = errors.New("invalid recurring day")
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Recurrence) Validate() error {
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return fmt.Errorf("%w: %d", ErrInvalidRecurringDay, r.DayOfMonth)
	}
	return nil
}

// SeriesID identifies the chain of copies a record belongs to. Records
// created by the user start their own series.
func (r Record) SeriesID() string {
	if r.OriginID != "" {
		return r.OriginID
	}
	return r.ID
}

// IsRecurring reports whether the record carries a recurrence marker.
func (r Record) IsRecurring() bool {
	return r.Recurrence != nil
}

// Clone returns a copy that shares no pointers with r.
func (r Record) Clone() Record {
	if r.Recurrence != nil {
		rec := *r.Recurrence
		r.Recurrence = &rec
	}
	return r
}

func (r Record) Validate() error {
	return validateFields(r.Description, r.Amount, r.Kind, r.OccurredOn, r.Recurrence)
}

func (n NewRecord) Validate() error {
	return validateFields(n.Description, n.Amount, n.Kind, n.OccurredOn, n.Recurrence)
}

// WithID turns the input into a record carrying the given id.
func (n NewRecord) WithID(id string) Record {
	return Record{
		ID:          id,
		Description: n.Description,
		Amount:      n.Amount,
		Kind:        n.Kind,
		CategoryID:  n.CategoryID,
		OccurredOn:  n.OccurredOn,
		Recurrence:  n.Recurrence,
		OriginID:    n.OriginID,
	}.Clone()
}

// Apply merges the patch into r and validates the result.
func (p RecordPatch) Apply(r Record) (Record, error) {
	out := r.Clone()
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		out.CategoryID = *p.CategoryID
	}
	if err := out.Validate(); err != nil {
		return r, err
	}
	return out, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.CategoryID == nil
}

func validateFields(desc string, amount Money, kind Kind, on time.Time, rec *Recurrence) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	if on.IsZero() {
		return ErrInvalidDate
	}
	if rec != nil {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	return nil
}
