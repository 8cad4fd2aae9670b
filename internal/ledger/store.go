// Package ledger holds the session's transaction records.
//
// Store is the single mutual-exclusion boundary for every mutation. Callers
// that need check-then-insert semantics (recurrence projection, month copy)
// run their logic inside Atomic so no other mutation can interleave. When the
// journal is shared with other processes the boundary extends to them: Atomic
// locks the journal, reloads it and writes through the same lock.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"carteira/internal/core"
)

const (
	OpAdded   ChangeOp = "added"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

type (
	ChangeOp string

	// Change describes one committed mutation. For deletions Record holds the
	// removed record.
	Change struct {
		Op     ChangeOp
		Record core.Record
	}

	// Journal receives committed changes, e.g. to mirror them in a database.
	Journal interface {
		Apply(ctx context.Context, changes []Change) error
	}

	// Snapshot is the journal's content at one revision.
	Snapshot struct {
		Records  []core.Record
		Revision int64
	}

	// SharedJournal is a journal other processes write to as well. The
	// store treats it as the source of truth.
	SharedJournal interface {
		Journal
		Revision(ctx context.Context) (int64, error)
		Snapshot(ctx context.Context) (Snapshot, error)
		// Begin takes the journal's write lock until Commit or Rollback.
		Begin(ctx context.Context) (JournalSession, error)
	}

	// JournalSession is a locked, exclusive view of a SharedJournal.
	JournalSession interface {
		Snapshot(ctx context.Context) (Snapshot, error)
		// Apply writes the changes and returns the new revision.
		Apply(ctx context.Context, changes []Change) (int64, error)
		Commit() error
		Rollback() error
	}
)

// unknownRevision forces the next refresh to reload.
const unknownRevision = -1

type Store struct {
	mu      sync.Mutex
	records []core.Record
	index   map[string]int
	journal Journal
	shared  SharedJournal
	newID   func() string

	revision int64
}

// NewStore restores the given records in order. They are not sent to the
// journal. journal may be nil.
func NewStore(initial []core.Record, journal Journal) *Store {
	s := &Store{
		records: make([]core.Record, 0, len(initial)),
		index:   make(map[string]int, len(initial)),
		journal: journal,
		newID:   uuid.NewString,
	}
	if shared, ok := journal.(SharedJournal); ok {
		s.shared = shared
		s.revision = unknownRevision
	}
	s.replace(initial)
	return s
}

func (s *Store) replace(records []core.Record) {
	s.records = make([]core.Record, 0, len(records))
	s.index = make(map[string]int, len(records))
	for _, r := range records {
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r.Clone())
	}
}

// Add validates the input, assigns a fresh id and appends the record.
func (s *Store) Add(ctx context.Context, in core.NewRecord) (core.Record, error) {
	changes, err := s.Atomic(ctx, func(tx *Tx) error {
		_, err := tx.Insert(in)
		return err
	})
	return firstRecord(changes), err
}

// Update merges the patch into the record with the given id.
// Unknown ids return core.ErrNotFound.
func (s *Store) Update(ctx context.Context, id string, patch core.RecordPatch) (core.Record, error) {
	changes, err := s.Atomic(ctx, func(tx *Tx) error {
		_, err := tx.Update(id, patch)
		return err
	})
	return firstRecord(changes), err
}

func firstRecord(changes []Change) core.Record {
	if len(changes) == 0 {
		return core.Record{}
	}
	return changes[0].Record
}

// Delete removes the record with the given id. Unknown ids return
// core.ErrNotFound. Copies made from the record are left alone.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.Atomic(ctx, func(tx *Tx) error {
		return tx.Delete(id)
	})
	return err
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records)
}

func (s *Store) Get(id string) (core.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return core.Record{}, false
	}
	return s.records[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Revision is the shared journal revision the store last saw. It stays zero
// without a shared journal.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Refresh reloads the records when the shared journal moved past the
// revision the store holds. It reports whether anything was reloaded.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	if s.shared == nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.shared.Revision(ctx)
	if err != nil {
		return false, fmt.Errorf("journal revision: %w", err)
	}
	if rev == s.revision {
		return false, nil
	}
	snap, err := s.shared.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("journal snapshot: %w", err)
	}
	s.replace(snap.Records)
	s.revision = snap.Revision
	return true, nil
}

// Atomic runs fn while holding the store lock. Changes made through tx are
// kept even if fn later returns an error; the journal sees every change that
// was made. The returned changes are in the order they happened.
//
// With a shared journal fn runs on a fresh snapshot taken under the journal
// lock. If the journal rejects the changes they are rolled back in memory too
// and no changes are returned.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Tx) error) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shared != nil {
		return s.atomicShared(ctx, fn)
	}

	tx := &Tx{s: s}
	fnErr := fn(tx)

	if len(tx.changes) > 0 && s.journal != nil {
		if err := s.journal.Apply(ctx, tx.changes); err != nil {
			return tx.changes, fmt.Errorf("journal: %w", err)
		}
	}
	return tx.changes, fnErr
}

func (s *Store) atomicShared(ctx context.Context, fn func(tx *Tx) error) ([]Change, error) {
	sess, err := s.shared.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	defer sess.Rollback()

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	if snap.Revision != s.revision {
		s.replace(snap.Records)
		s.revision = snap.Revision
	}

	tx := &Tx{s: s}
	fnErr := fn(tx)
	if len(tx.changes) == 0 {
		return nil, fnErr
	}

	rev, err := sess.Apply(ctx, tx.changes)
	if err == nil {
		err = sess.Commit()
	}
	if err != nil {
		s.replace(snap.Records)
		s.revision = snap.Revision
		return nil, fmt.Errorf("journal: %w", err)
	}
	s.revision = rev
	return tx.changes, fnErr
}

// Tx is the view of the store handed to Atomic callbacks. It must not be
// used after the callback returns.
type Tx struct {
	s       *Store
	changes []Change
}

// Records returns a copy of every record, including those inserted earlier
// in the same transaction.
func (tx *Tx) Records() []core.Record {
	return cloneAll(tx.s.records)
}

func (tx *Tx) Insert(in core.NewRecord) (core.Record, error) {
	if err := in.Validate(); err != nil {
		return core.Record{}, err
	}
	s := tx.s
	r := in.WithID(s.newID())
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
	tx.changes = append(tx.changes, Change{Op: OpAdded, Record: r.Clone()})
	return r.Clone(), nil
}

func (tx *Tx) Update(id string, patch core.RecordPatch) (core.Record, error) {
	s := tx.s
	i, ok := s.index[id]
	if !ok {
		return core.Record{}, fmt.Errorf("update %s: %w", id, core.ErrNotFound)
	}
	r, err := patch.Apply(s.records[i])
	if err != nil {
		return core.Record{}, err
	}
	s.records[i] = r
	tx.changes = append(tx.changes, Change{Op: OpUpdated, Record: r.Clone()})
	return r.Clone(), nil
}

func (tx *Tx) Delete(id string) error {
	s := tx.s
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	removed := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	tx.changes = append(tx.changes, Change{Op: OpDeleted, Record: removed})
	return nil
}

func cloneAll(in []core.Record) []core.Record {
	out := make([]core.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
