package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Typed helpers let engine code work in terms of models.* structs
// while the Store interface itself stays table-agnostic (per §6.2,
// storage never knows about the CORE's Go types, only records). The
// round-trip through encoding/json reuses the same `json` struct tags
// models/*.go already carries for the REST surface, so there's no
// second tagging scheme to maintain.

// Select fetches rows matching filter and decodes them into T.
func Select[T any](ctx context.Context, s Store, table Table, filter Filter) ([]T, error) {
	rows, err := s.Select(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := decodeRecord(row, &v); err != nil {
			return nil, fmt.Errorf("storage: decode %s row: %w", table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SelectOne fetches exactly one row by filter, returning (zero, false)
// when nothing matches.
func SelectOne[T any](ctx context.Context, s Store, table Table, filter Filter) (T, bool, error) {
	rows, err := Select[T](ctx, s, table, filter)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, false, nil
	}
	return rows[0], true, nil
}

// Insert encodes values and inserts them, returning assigned ids.
func Insert[T any](ctx context.Context, s Store, table Table, values []T) ([]int, error) {
	records := make([]map[string]any, 0, len(values))
	for _, v := range values {
		rec, err := encodeRecord(v)
		if err != nil {
			return nil, fmt.Errorf("storage: encode %s row: %w", table, err)
		}
		records = append(records, rec)
	}
	return s.Insert(ctx, table, records)
}

// Update encodes value through its json tags and applies the result to
// rows selected by filter. Zero-valued fields are written too, unless
// their json tag carries omitempty.
func Update[T any](ctx context.Context, s Store, table Table, filter Filter, value T) (bool, error) {
	rec, err := encodeRecord(value)
	if err != nil {
		return false, fmt.Errorf("storage: encode %s row: %w", table, err)
	}
	return s.Update(ctx, table, filter, rec)
}

// Delete removes rows matching filter.
func Delete(ctx context.Context, s Store, table Table, filter Filter) (bool, error) {
	return s.Delete(ctx, table, filter)
}

// DeleteByID removes a single row by primary key.
func DeleteByID(ctx context.Context, s Store, table Table, id int) (bool, error) {
	return s.Delete(ctx, table, ByID(id))
}

func decodeRecord(row map[string]any, out any) error {
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func encodeRecord(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
