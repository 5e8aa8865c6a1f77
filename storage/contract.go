// Package storage defines the §6.2 storage contract: an asynchronous
// CRUD surface the CORE issues against named tables, and nothing
// else. The core never inspects storage-specific error shapes; any
// failure crossing this boundary is wrapped as engine.StorageError by
// callers. This mirrors the teacher's repositories package at the
// interface level (one method family per table) while staying
// generic, since the CORE's tables (stages, groups, rounds, matches,
// match_games) don't exist as concrete teacher types.
package storage

import "context"

// Table names the core operates against; concrete adapters map these
// onto real tables/collections.
type Table string

const (
	Tournaments Table = "tournaments"
	Participants Table = "participants"
	Stages       Table = "stages"
	Groups       Table = "groups"
	Rounds       Table = "rounds"
	Matches      Table = "matches"
	MatchGames   Table = "match_games"
	Standings    Table = "standings"
	Seedings     Table = "seedings"
)

// Filter selects rows for Select/Update/Delete. Exactly one of its
// fields should be meaningful at a time:
//   - ID set, Partial nil: fetch by primary key.
//   - ID zero, Partial non-nil: fetch every row whose fields match
//     Partial's non-zero fields (a partial-match record, per §6.2).
//   - both zero/nil: fetch all rows of the table.
type Filter struct {
	ID      int
	Partial map[string]any
}

// ByID builds a Filter selecting a single row by primary key.
func ByID(id int) Filter { return Filter{ID: id} }

// Match builds a Filter selecting every row whose fields equal the
// given partial record.
func Match(partial map[string]any) Filter { return Filter{Partial: partial} }

// All is the zero Filter: every row of the table.
var All = Filter{}

// Store is the §6.2 storage contract. Implementations may be an
// in-memory fake (storage/memory, used by the CORE's own tests) or a
// concrete backend adapter (storage/postgres).
type Store interface {
	Select(ctx context.Context, table Table, filter Filter) ([]map[string]any, error)
	Insert(ctx context.Context, table Table, records []map[string]any) ([]int, error)
	Update(ctx context.Context, table Table, filter Filter, record map[string]any) (bool, error)
	Delete(ctx context.Context, table Table, filter Filter) (bool, error)
}
