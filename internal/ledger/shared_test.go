package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"carteira/internal/core"
)

// sharedMemJournal stands in for a database several stores write to.
type sharedMemJournal struct {
	lock     sync.Mutex
	mu       sync.Mutex
	records  []core.Record
	revision int64
	applyErr error
}

func (j *sharedMemJournal) Apply(ctx context.Context, changes []Change) error {
	sess, _ := j.Begin(ctx)
	if _, err := sess.Apply(ctx, changes); err != nil {
		sess.Rollback()
		return err
	}
	return sess.Commit()
}

func (j *sharedMemJournal) Revision(context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.revision, nil
}

func (j *sharedMemJournal) Snapshot(context.Context) (Snapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{Records: cloneAll(j.records), Revision: j.revision}, nil
}

func (j *sharedMemJournal) Begin(context.Context) (JournalSession, error) {
	j.lock.Lock()
	snap, _ := j.Snapshot(context.Background())
	return &memSession{j: j, records: snap.Records, revision: snap.Revision}, nil
}

type memSession struct {
	j        *sharedMemJournal
	records  []core.Record
	revision int64
	done     bool
}

func (s *memSession) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot{Records: cloneAll(s.records), Revision: s.revision}, nil
}

func (s *memSession) Apply(_ context.Context, changes []Change) (int64, error) {
	if s.j.applyErr != nil {
		return 0, s.j.applyErr
	}
	for _, c := range changes {
		switch c.Op {
		case OpAdded:
			s.records = append(s.records, c.Record)
		case OpUpdated, OpDeleted:
			for i, r := range s.records {
				if r.ID != c.Record.ID {
					continue
				}
				if c.Op == OpUpdated {
					s.records[i] = c.Record
				} else {
					s.records = append(s.records[:i], s.records[i+1:]...)
				}
				break
			}
		}
	}
	s.revision++
	return s.revision, nil
}

func (s *memSession) Commit() error {
	if s.done {
		return nil
	}
	s.j.mu.Lock()
	s.j.records, s.j.revision = s.records, s.revision
	s.j.mu.Unlock()
	return s.Rollback()
}

func (s *memSession) Rollback() error {
	if !s.done {
		s.done = true
		s.j.lock.Unlock()
	}
	return nil
}

func TestSharedStoresSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	j := &sharedMemJournal{}
	a := newTestStore(nil, j)
	b := newTestStore(nil, j)
	b.newID = func() string { return "b-1" }

	ra, err := a.Add(ctx, expense("Aluguel", 150000, "6", 1))
	if err != nil {
		t.Fatalf("add on a: %v", err)
	}

	// b's check-then-insert runs on the journal's content, not on its
	// stale copy.
	_, err = b.Atomic(ctx, func(tx *Tx) error {
		if n := len(tx.Records()); n != 1 {
			t.Fatalf("b sees %d records inside Atomic, want 1", n)
		}
		_, err := tx.Insert(expense("Mercado", 45000, "4", 10))
		return err
	})
	if err != nil {
		t.Fatalf("atomic on b: %v", err)
	}

	if a.Len() != 1 {
		t.Fatalf("a reloaded without being asked")
	}
	changed, err := a.Refresh(ctx)
	if err != nil || !changed {
		t.Fatalf("refresh = %v, %v", changed, err)
	}
	all := a.All()
	if len(all) != 2 || all[0].ID != ra.ID || all[1].ID != "b-1" {
		t.Fatalf("a after refresh: %+v", all)
	}
	if a.Revision() != 2 || b.Revision() != 2 {
		t.Fatalf("revisions a=%d b=%d, want 2", a.Revision(), b.Revision())
	}
	if changed, _ := a.Refresh(ctx); changed {
		t.Fatalf("refresh at the same revision reloaded")
	}
}

func TestSharedStoreUpdatesRecordAddedElsewhere(t *testing.T) {
	ctx := context.Background()
	j := &sharedMemJournal{}
	a := newTestStore(nil, j)
	b := newTestStore(nil, j)

	r, _ := a.Add(ctx, expense("Uber", 4500, "5", 15))
	desc := "Uber Centro"
	got, err := b.Update(ctx, r.ID, core.RecordPatch{Description: &desc})
	if err != nil || got.Description != desc {
		t.Fatalf("update through b = %+v, %v", got, err)
	}
}

func TestSharedStoreRollsBackOnJournalFailure(t *testing.T) {
	ctx := context.Background()
	j := &sharedMemJournal{}
	s := newTestStore(nil, j)
	if _, err := s.Add(ctx, expense("a", 100, "4", 1)); err != nil {
		t.Fatalf("add: %v", err)
	}

	j.applyErr = errors.New("database is locked")
	r, err := s.Add(ctx, expense("b", 200, "4", 2))
	if err == nil {
		t.Fatalf("expected journal error")
	}
	if r.ID != "" {
		t.Fatalf("failed add returned a record: %+v", r)
	}
	if s.Len() != 1 {
		t.Fatalf("rejected change stayed in memory: %d records", s.Len())
	}
}

func TestNewSharedStoreReloadsOnFirstAtomic(t *testing.T) {
	ctx := context.Background()
	j := &sharedMemJournal{records: []core.Record{expense("a", 100, "4", 1).WithID("r1")}, revision: 7}
	s := newTestStore(nil, j)

	changes, err := s.Atomic(ctx, func(tx *Tx) error { return nil })
	if err != nil || len(changes) != 0 {
		t.Fatalf("atomic = %v, %v", changes, err)
	}
	if _, ok := s.Get("r1"); !ok || s.Revision() != 7 {
		t.Fatalf("store did not load the journal: revision %d", s.Revision())
	}
}
