// Package memory implements an in-memory storage.Store, playing the
// role the teacher's Postgres repositories play in production: the
// fixture most CORE unit tests are grounded on (SPEC_FULL §1.1 test
// tooling). It assigns integer ids on insert, exactly as §6.2 requires
// real storage to.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dosada05/bracketengine/storage"
)

type Store struct {
	mu     sync.Mutex
	tables map[storage.Table]map[int]map[string]any
	nextID map[storage.Table]int
}

func New() *Store {
	return &Store{
		tables: make(map[storage.Table]map[int]map[string]any),
		nextID: make(map[storage.Table]int),
	}
}

func (s *Store) table(t storage.Table) map[int]map[string]any {
	if s.tables[t] == nil {
		s.tables[t] = make(map[int]map[string]any)
	}
	return s.tables[t]
}

func (s *Store) Select(_ context.Context, t storage.Table, filter storage.Filter) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.table(t)
	var ids []int
	for id := range tbl {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []map[string]any
	for _, id := range ids {
		row := tbl[id]
		if filter.ID != 0 && id != filter.ID {
			continue
		}
		if filter.Partial != nil && !matches(row, filter.Partial) {
			continue
		}
		out = append(out, cloneRow(row))
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, t storage.Table, records []map[string]any) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.table(t)
	ids := make([]int, 0, len(records))
	for _, rec := range records {
		s.nextID[t]++
		id := s.nextID[t]
		row := cloneRow(rec)
		row["id"] = id
		tbl[id] = row
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Update(_ context.Context, t storage.Table, filter storage.Filter, record map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.table(t)
	updated := false
	for id, row := range tbl {
		if filter.ID != 0 && id != filter.ID {
			continue
		}
		if filter.Partial != nil && !matches(row, filter.Partial) {
			continue
		}
		for k, v := range record {
			if k == "id" {
				continue
			}
			row[k] = v
		}
		tbl[id] = row
		updated = true
	}
	return updated, nil
}

func (s *Store) Delete(_ context.Context, t storage.Table, filter storage.Filter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.table(t)
	deleted := false
	for id, row := range tbl {
		if filter.ID != 0 && id != filter.ID {
			continue
		}
		if filter.Partial != nil && !matches(row, filter.Partial) {
			continue
		}
		delete(tbl, id)
		deleted = true
	}
	return deleted, nil
}

func matches(row map[string]any, partial map[string]any) bool {
	for k, want := range partial {
		got, ok := row[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
