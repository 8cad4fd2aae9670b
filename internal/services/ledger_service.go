package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"carteira/internal/amqp"
	"carteira/internal/cache"
	"carteira/internal/core"
	"carteira/internal/ledger"
	applog "carteira/internal/log"
)

// Event sources attached to published ledger events.
const (
	SourceUser       = "user"
	SourceProjection = "projection"
	SourceCopy       = "copy"
)

// EventPublisher receives one message per committed change.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerServiceConfig tunes a LedgerService. Zero values select defaults.
type LedgerServiceConfig struct {
	Location       *time.Location
	Now            func() time.Time
	Matcher        DuplicateMatcher
	StatsCacheSize int
	StatsCacheTTL  time.Duration
}

// LedgerService orchestrates the record store, the projector, monthly
// statistics and event publishing.
type LedgerService struct {
	store     *ledger.Store
	projector *Projector
	publisher EventPublisher
	loc       *time.Location
	now       func() time.Time

	stats      cache.Cache[core.MonthlyStats]
	mu         sync.Mutex
	generation uint64

	projecting singleflight.Group
}

func NewLedgerService(store *ledger.Store, publisher EventPublisher, cfg LedgerServiceConfig) *LedgerService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StatsCacheSize <= 0 {
		cfg.StatsCacheSize = 24
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 5 * time.Minute
	}
	return &LedgerService{
		store:     store,
		projector: NewProjector(store, cfg.Location, cfg.Now, cfg.Matcher),
		publisher: publisher,
		loc:       cfg.Location,
		now:       cfg.Now,
		stats:     cache.NewLRUCache[core.MonthlyStats](cfg.StatsCacheSize, cfg.StatsCacheTTL),
	}
}

// Location is the time zone used for month bucketing.
func (s *LedgerService) Location() *time.Location { return s.loc }

// CurrentMonth returns the month the service clock is in.
func (s *LedgerService) CurrentMonth() core.MonthKey { return s.projector.CurrentMonth() }

// Today returns midnight of the current day in the service location.
func (s *LedgerService) Today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func (s *LedgerService) Add(ctx context.Context, in core.NewRecord) (core.Record, error) {
	r, err := s.store.Add(ctx, in)
	if r.ID != "" {
		s.committed(ctx, SourceUser, []ledger.Change{{Op: ledger.OpAdded, Record: r}})
	}
	if err != nil {
		return r, fmt.Errorf("add record: %w", err)
	}
	return r, nil
}

func (s *LedgerService) Update(ctx context.Context, id string, patch core.RecordPatch) (core.Record, error) {
	r, err := s.store.Update(ctx, id, patch)
	if r.ID != "" {
		s.committed(ctx, SourceUser, []ledger.Change{{Op: ledger.OpUpdated, Record: r}})
	}
	if err != nil {
		return r, fmt.Errorf("update record: %w", err)
	}
	return r, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) error {
	changes, err := s.store.Atomic(ctx, func(tx *ledger.Tx) error {
		return tx.Delete(id)
	})
	s.committed(ctx, SourceUser, changes)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// All returns every record in insertion order.
func (s *LedgerService) All() []core.Record {
	return s.store.All()
}

// Recent returns up to n records, most recent OccurredOn first.
func (s *LedgerService) Recent(n int) []core.Record {
	all := s.store.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OccurredOn.After(all[j].OccurredOn)
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Stats returns the month's totals, served from cache until the next mutation.
// With a shared journal the store is refreshed first, so writes from other
// processes are counted.
func (s *LedgerService) Stats(ctx context.Context, month core.MonthKey) core.MonthlyStats {
	if _, err := s.store.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Using cached ledger, refresh failed",
			applog.NewFields().WithError(err).WithErrorType(applog.ErrorTypeDatabase).ToSlice()...)
	}
	key := fmt.Sprintf("%s@%d", month, s.store.Revision())
	if st, ok := s.stats.Get(key); ok {
		return st
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	st := ComputeStats(s.store.All(), month, s.loc)

	s.mu.Lock()
	if gen == s.generation {
		s.stats.Set(key, st)
	}
	s.mu.Unlock()

	slog.DebugContext(ctx, "Computed monthly stats",
		"month", month.String(),
		"income_cents", st.TotalIncome.Cents,
		"expense_cents", st.TotalExpense.Cents)
	return st
}

// ProjectCurrentMonth materializes missing recurring occurrences.
func (s *LedgerService) ProjectCurrentMonth(ctx context.Context) ([]core.Record, error) {
	created, err := s.projector.ProjectCurrentMonth(ctx)
	s.committed(ctx, SourceProjection, addedChanges(created))
	if err != nil {
		return created, fmt.Errorf("project current month: %w", err)
	}
	return created, nil
}

// EnsureProjected runs ProjectCurrentMonth, sharing one run among concurrent
// callers. Callers that joined a run see the records it created.
func (s *LedgerService) EnsureProjected(ctx context.Context) ([]core.Record, error) {
	v, err, shared := s.projecting.Do(s.CurrentMonth().String(), func() (any, error) {
		return s.ProjectCurrentMonth(ctx)
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight projection")
	}
	created, _ := v.([]core.Record)
	return created, err
}

// CopyFromPreviousMonth duplicates last month's records into this month.
// Repeated calls duplicate again.
func (s *LedgerService) CopyFromPreviousMonth(ctx context.Context) ([]core.Record, error) {
	created, err := s.projector.CopyFromPreviousMonth(ctx)
	s.committed(ctx, SourceCopy, addedChanges(created))
	if err != nil {
		return created, fmt.Errorf("copy previous month: %w", err)
	}
	return created, nil
}

// committed invalidates cached stats and publishes the changes.
func (s *LedgerService) committed(ctx context.Context, source string, changes []ledger.Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	s.generation++
	s.stats.Purge()
	s.mu.Unlock()

	if s.publisher == nil {
		return
	}
	for _, c := range changes {
		msg := amqp.NewLedgerEventMessage(string(c.Op), source, c.Record)
		if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
			// The change is already committed.
			fields := applog.NewFields().
				WithOperation(applog.OpPublish).
				WithRecord(c.Record).
				WithError(err).
				WithErrorType(applog.ErrorTypeNetwork)
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				append(fields.ToSlice(), "change", string(c.Op))...)
		}
	}
}

func addedChanges(records []core.Record) []ledger.Change {
	changes := make([]ledger.Change, len(records))
	for i, r := range records {
		changes[i] = ledger.Change{Op: ledger.OpAdded, Record: r}
	}
	return changes
}
