package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"carteira/internal/core"
	"carteira/internal/ledger"

	_ "modernc.org/sqlite"
)

// busyTimeout is how long a writer waits for another process holding the
// database lock.
const busyTimeout = 5 * time.Second

// SQLiteRepository is the shared ledger journal. Every process opening the
// same file sees the others' writes, and mutations are serialized through
// the SQLite write lock.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.SharedJournal = (*SQLiteRepository)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dbtx is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type dbtx interface {
	execer
	querier
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := setBusyTimeout(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Apply implements ledger.Journal. All changes are written in one transaction.
func (r *SQLiteRepository) Apply(ctx context.Context, changes []ledger.Change) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := applyChanges(ctx, tx, changes); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Revision returns the number of committed change batches.
func (r *SQLiteRepository) Revision(ctx context.Context) (int64, error) {
	return readRevision(ctx, r.db)
}

// Snapshot reads every record and the revision they belong to in one read
// transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	return readSnapshot(ctx, tx)
}

// Load returns every stored record in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Record, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Loaded records from SQLite", "count", len(snap.Records), "revision", snap.Revision)
	return snap.Records, nil
}

// Begin implements ledger.SharedJournal. It holds a dedicated connection in
// an IMMEDIATE transaction, which blocks writers in other processes until
// the session ends.
func (r *SQLiteRepository) Begin(ctx context.Context) (ledger.JournalSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if err := setBusyTimeout(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lock database: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *sql.Conn
	done bool
}

func (s *session) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	return readSnapshot(ctx, s.conn)
}

func (s *session) Apply(ctx context.Context, changes []ledger.Change) (int64, error) {
	rev, err := applyChanges(ctx, s.conn, changes)
	if err != nil {
		return 0, err
	}
	slog.DebugContext(ctx, "Ledger changes saved to SQLite", "count", len(changes), "revision", rev)
	return rev, nil
}

func (s *session) Commit() error {
	return s.end("COMMIT")
}

// Rollback is a no-op after Commit.
func (s *session) Rollback() error {
	return s.end("ROLLBACK")
}

func (s *session) end(stmt string) error {
	if s.done {
		return nil
	}
	s.done = true
	_, err := s.conn.ExecContext(context.Background(), stmt)
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	return nil
}

// applyChanges writes the batch and bumps the revision, returning the new one.
func applyChanges(ctx context.Context, db dbtx, changes []ledger.Change) (int64, error) {
	for _, c := range changes {
		if err := applyChange(ctx, db, c); err != nil {
			return 0, fmt.Errorf("%s %s: %w", c.Op, c.Record.ID, err)
		}
	}
	if _, err := db.ExecContext(ctx, `UPDATE ledger_state SET revision = revision + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return readRevision(ctx, db)
}

func applyChange(ctx context.Context, db execer, c ledger.Change) error {
	rec := c.Record
	switch c.Op {
	case ledger.OpAdded:
		_, err := db.ExecContext(ctx, `
			INSERT INTO records (id, description, amount_cents, kind, category_id, occurred_on, recurring_day, origin_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Description, rec.Amount.Cents, string(rec.Kind), rec.CategoryID,
			rec.OccurredOn.Format(time.RFC3339Nano), recurringDay(rec), rec.OriginID)
		return err
	case ledger.OpUpdated:
		res, err := db.ExecContext(ctx, `
			UPDATE records
			SET description = ?, amount_cents = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			rec.Description, rec.Amount.Cents, rec.CategoryID, rec.ID)
		if err != nil {
			return err
		}
		return expectRow(res)
	case ledger.OpDeleted:
		res, err := db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rec.ID)
		if err != nil {
			return err
		}
		return expectRow(res)
	default:
		return fmt.Errorf("unsupported change op: %s", c.Op)
	}
}

func setBusyTimeout(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

func readRevision(ctx context.Context, db querier) (int64, error) {
	var rev int64
	if err := db.QueryRowContext(ctx, `SELECT revision FROM ledger_state WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func readSnapshot(ctx context.Context, db querier) (ledger.Snapshot, error) {
	rev, err := readRevision(ctx, db)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, description, amount_cents, kind, category_id, occurred_on, recurring_day, origin_id
		FROM records
		ORDER BY seq`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec        core.Record
			kind       string
			occurredOn string
			day        sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.Amount.Cents, &kind,
			&rec.CategoryID, &occurredOn, &day, &rec.OriginID); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = core.Kind(kind)
		rec.OccurredOn, err = time.Parse(time.RFC3339Nano, occurredOn)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("record %s: parse occurred_on %q: %w", rec.ID, occurredOn, err)
		}
		if day.Valid {
			rec.Recurrence = &core.Recurrence{DayOfMonth: int(day.Int64)}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("iterate records: %w", err)
	}
	return ledger.Snapshot{Records: out, Revision: rev}, nil
}

func recurringDay(r core.Record) sql.NullInt64 {
	if r.Recurrence == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(r.Recurrence.DayOfMonth), Valid: true}
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
