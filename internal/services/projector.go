package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carteira/internal/core"
	"carteira/internal/ledger"
	applog "carteira/internal/log"
)

// Projector materializes recurring records into the current month and copies
// whole months forward.
type Projector struct {
	store   *ledger.Store
	loc     *time.Location
	now     func() time.Time
	matcher DuplicateMatcher
}

// NewProjector creates a projector. A nil matcher selects SeriesMatcher, a nil
// clock selects time.Now and a nil location selects time.Local.
func NewProjector(store *ledger.Store, loc *time.Location, now func() time.Time, matcher DuplicateMatcher) *Projector {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if matcher == nil {
		matcher = SeriesMatcher{}
	}
	return &Projector{store: store, loc: loc, now: now, matcher: matcher}
}

// CurrentMonth returns the month the clock is in.
func (p *Projector) CurrentMonth() core.MonthKey {
	return core.MonthOf(p.now(), p.loc)
}

// ProjectCurrentMonth creates the missing current-month occurrence of every
// record carrying a recurrence marker, projected copies included. Running it
// again in the same month creates nothing.
func (p *Projector) ProjectCurrentMonth(ctx context.Context) ([]core.Record, error) {
	if p.store == nil {
		return nil, fmt.Errorf("projector not properly initialized")
	}
	month := p.CurrentMonth()

	changes, err := p.store.Atomic(ctx, func(tx *ledger.Tx) error {
		templates := tx.Records()
		records := append([]core.Record(nil), templates...)
		for _, t := range templates {
			if !t.IsRecurring() {
				continue
			}
			day := month.ClampDay(t.Recurrence.DayOfMonth)
			if p.hasOccurrence(records, t, month, day) {
				continue
			}

			r, err := tx.Insert(copyInto(t, month, day, p.loc))
			if err != nil {
				return fmt.Errorf("project %s: %w", t.ID, err)
			}
			records = append(records, r)
			fields := applog.NewFields().WithOperation(applog.OpProject).WithRecord(r)
			slog.InfoContext(ctx, "Projected recurring record",
				append(fields.ToSlice(), "template_id", t.ID)...)
		}
		return nil
	})
	created := addedRecords(changes)
	if err != nil {
		return created, err
	}

	slog.InfoContext(ctx, "Recurring projection complete",
		append(applog.NewFields().WithOperation(applog.OpProject).WithMonth(month).ToSlice(),
			applog.FieldCreated, len(created))...)
	return created, nil
}

// CopyFromPreviousMonth duplicates every record of the previous month into
// the current one, keeping the day of month (clamped to the month's length).
// It does not look for existing copies: calling it twice copies twice.
func (p *Projector) CopyFromPreviousMonth(ctx context.Context) ([]core.Record, error) {
	if p.store == nil {
		return nil, fmt.Errorf("projector not properly initialized")
	}
	month := p.CurrentMonth()
	prev := month.Prev()

	changes, err := p.store.Atomic(ctx, func(tx *ledger.Tx) error {
		for _, src := range tx.Records() {
			if !prev.Contains(src.OccurredOn, p.loc) {
				continue
			}
			day := month.ClampDay(core.DayOf(src.OccurredOn, p.loc))
			r, err := tx.Insert(copyInto(src, month, day, p.loc))
			if err != nil {
				return fmt.Errorf("copy %s: %w", src.ID, err)
			}
			fields := applog.NewFields().WithOperation(applog.OpCopy).WithRecord(r)
			slog.DebugContext(ctx, "Copied record",
				append(fields.ToSlice(), "source_id", src.ID)...)
		}
		return nil
	})
	created := addedRecords(changes)
	if err != nil {
		return created, err
	}

	slog.InfoContext(ctx, "Copied previous month",
		append(applog.NewFields().WithOperation(applog.OpCopy).WithMonth(month).ToSlice(),
			"from", prev.String(),
			applog.FieldCreated, len(created))...)
	return created, nil
}

// addedRecords returns the records the store actually committed.
func addedRecords(changes []ledger.Change) []core.Record {
	var out []core.Record
	for _, c := range changes {
		if c.Op == ledger.OpAdded {
			out = append(out, c.Record)
		}
	}
	return out
}

func (p *Projector) hasOccurrence(records []core.Record, template core.Record, month core.MonthKey, day int) bool {
	for _, e := range records {
		if p.matcher.IsOccurrence(e, template, month, day, p.loc) {
			return true
		}
	}
	return false
}

func copyInto(src core.Record, month core.MonthKey, day int, loc *time.Location) core.NewRecord {
	src = src.Clone()
	return core.NewRecord{
		Description: src.Description,
		Amount:      src.Amount,
		Kind:        src.Kind,
		CategoryID:  src.CategoryID,
		OccurredOn:  month.Date(day, loc),
		Recurrence:  src.Recurrence,
		OriginID:    src.SeriesID(),
	}
}
