// Package postgres implements the §6.2 storage contract over
// PostgreSQL, the concrete backend adapter sitting where the teacher's
// per-table repositories (repositories/solomatch_repository.go et al.)
// sit in production. Unlike the teacher's one-struct-per-table
// repositories, the CORE's contract is itself table-agnostic (§6.2
// talks about named tables and partial-match records, not concrete Go
// structs), so this adapter keeps one physical table per §6.2 Table
// name, each shaped `(id serial primary key, data jsonb)`, and does
// partial-match filtering inside `data` with `@>` containment -- the
// same "generic record store on top of Postgres" pattern the teacher
// uses concretely per-entity, flattened to one reusable implementation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Dosada05/bracketengine/storage"
)

// Connect opens and pings a Postgres handle, grounded on the teacher's
// db.Connect (db/db.go): pool sizing, a bounded ping timeout, and a
// closed handle on ping failure rather than leaking a half-open pool.
func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("postgres: ping failed (%v) and close failed: %w", err, closeErr)
		}
		return nil, fmt.Errorf("postgres: ping within %v: %w", timeout, err)
	}
	return db, nil
}

// Store is a storage.Store backed by Postgres. One call site per
// manager process, exactly as the teacher constructs one *sql.DB in
// cmd/main.go and threads it through every repository constructor.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the generic per-table record store if it
// doesn't already exist. Safe to call on every process start, the
// same role the teacher's migrations directory plays, but inline
// since the CORE's table set is small and fixed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, t := range []storage.Table{
		storage.Tournaments, storage.Participants, storage.Stages,
		storage.Groups, storage.Rounds, storage.Matches,
		storage.MatchGames, storage.Standings, storage.Seedings,
	} {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			data JSONB NOT NULL
		)`, pqIdentifier(t))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres: create table %s: %w", t, err)
		}
	}
	return nil
}

func (s *Store) Select(ctx context.Context, t storage.Table, filter storage.Filter) ([]map[string]any, error) {
	if filter.ID != 0 {
		row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT id, data FROM %s WHERE id = $1`, pqIdentifier(t)), filter.ID)
		rec, err := scanRecord(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: select %s by id: %w", t, err)
		}
		return []map[string]any{rec}, nil
	}

	query := fmt.Sprintf(`SELECT id, data FROM %s`, pqIdentifier(t))
	var args []any
	if filter.Partial != nil {
		b, err := json.Marshal(filter.Partial)
		if err != nil {
			return nil, fmt.Errorf("postgres: encode filter for %s: %w", t, err)
		}
		query += ` WHERE data @> $1`
		args = append(args, string(b))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", t, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s row: %w", t, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Insert(ctx context.Context, t storage.Table, records []map[string]any) ([]int, error) {
	ids := make([]int, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(withoutID(rec))
		if err != nil {
			return nil, fmt.Errorf("postgres: encode %s record: %w", t, err)
		}
		var id int
		row := s.db.QueryRowContext(ctx, fmt.Sprintf(`INSERT INTO %s (data) VALUES ($1) RETURNING id`, pqIdentifier(t)), string(b))
		if err := row.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: insert %s: %w", t, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Update(ctx context.Context, t storage.Table, filter storage.Filter, record map[string]any) (bool, error) {
	existing, err := s.Select(ctx, t, filter)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}
	for _, row := range existing {
		id := int(row["id"].(float64))
		merged := withoutID(row)
		for k, v := range withoutID(record) {
			merged[k] = v
		}
		b, err := json.Marshal(merged)
		if err != nil {
			return false, fmt.Errorf("postgres: encode %s update: %w", t, err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET data = $1 WHERE id = $2`, pqIdentifier(t)), string(b), id); err != nil {
			return false, fmt.Errorf("postgres: update %s %d: %w", t, id, err)
		}
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, t storage.Table, filter storage.Filter) (bool, error) {
	var (
		query string
		args  []any
	)
	switch {
	case filter.ID != 0:
		query = fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, pqIdentifier(t))
		args = []any{filter.ID}
	case filter.Partial != nil:
		b, err := json.Marshal(filter.Partial)
		if err != nil {
			return false, fmt.Errorf("postgres: encode filter for %s: %w", t, err)
		}
		query = fmt.Sprintf(`DELETE FROM %s WHERE data @> $1`, pqIdentifier(t))
		args = []any{string(b)}
	default:
		query = fmt.Sprintf(`DELETE FROM %s`, pqIdentifier(t))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("postgres: delete %s: %w", t, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: rows affected %s: %w", t, err)
	}
	return n > 0, nil
}

// stageAdvisoryLockID derives a stable int64 advisory lock key from a
// stage id, the same "fixed key scoped to an operation" pattern as the
// teacher's db.SchedulerAdvisoryLockID, but keyed per-stage instead of
// a single global constant so unrelated stages don't serialize against
// each other.
func stageAdvisoryLockID(stageID int) int64 {
	return 700000000000 + int64(stageID)
}

// WithStageLock runs fn inside a transaction holding a transactional
// advisory lock keyed by stageID, so two callers racing a multi-row
// update.match propagation batch on the same stage cannot interleave
// partial writes. The lock is tried, not waited for: a caller that
// finds it held gets an error and fn does not run -- adapted from the teacher's
// TryAcquireTransactionalLock (db/db.go), generalized from a single
// scheduler lock to a per-stage lock.
func (s *Store) WithStageLock(ctx context.Context, stageID int, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lockID := stageAdvisoryLockID(stageID)
	var acquired bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockID).Scan(&acquired); err != nil {
		return fmt.Errorf("postgres: acquire advisory lock %d: %w", lockID, err)
	}
	if !acquired {
		s.logger.WarnContext(ctx, "stage advisory lock already held", slog.Int("stage_id", stageID), slog.Int64("lock_id", lockID))
		return fmt.Errorf("postgres: stage %d is locked by another caller", stageID)
	}

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit()
}

func pqIdentifier(t storage.Table) string { return string(t) }

func withoutID(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row *sql.Row) (map[string]any, error) { return scanInto(row) }

func scanRecordRows(rows *sql.Rows) (map[string]any, error) { return scanInto(rows) }

func scanInto(s rowScanner) (map[string]any, error) {
	var id int
	var raw []byte
	if err := s.Scan(&id, &raw); err != nil {
		return nil, err
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	rec["id"] = float64(id) // matches encoding/json's numeric decoding shape
	return rec, nil
}
