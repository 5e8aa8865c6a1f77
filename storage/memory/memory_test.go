package memory

import (
	"context"
	"testing"

	"github.com/Dosada05/bracketengine/storage"
)

func TestInsertAssignsSequentialIDsPerTable(t *testing.T) {
	s := New()
	ctx := context.Background()

	ids, err := s.Insert(ctx, storage.Participants, []map[string]any{
		{"name": "A"}, {"name": "B"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected sequential ids [1 2], got %v", ids)
	}

	// A second table starts its own sequence at 1 rather than
	// continuing the first table's counter.
	matchIDs, err := s.Insert(ctx, storage.Matches, []map[string]any{{"number": 1}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if matchIDs[0] != 1 {
		t.Fatalf("expected matches table to start at id 1, got %d", matchIDs[0])
	}
}

func TestSelectByIDReturnsOnlyThatRow(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids, _ := s.Insert(ctx, storage.Participants, []map[string]any{
		{"name": "A"}, {"name": "B"}, {"name": "C"},
	})

	rows, err := s.Select(ctx, storage.Participants, storage.ByID(ids[1]))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "B" {
		t.Fatalf("expected exactly row B, got %v", rows)
	}
}

func TestSelectAllReturnsEveryRowInIDOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Insert(ctx, storage.Participants, []map[string]any{
		{"name": "A"}, {"name": "B"}, {"name": "C"},
	})

	rows, err := s.Select(ctx, storage.Participants, storage.All)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []string{"A", "B", "C"}
	for i, row := range rows {
		if row["name"] != want[i] {
			t.Fatalf("row %d: got %v, want %s", i, row["name"], want[i])
		}
	}
}

func TestSelectPartialMatchFiltersOnEveryGivenField(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Insert(ctx, storage.Matches, []map[string]any{
		{"stage_id": float64(1), "group_id": float64(1), "number": float64(1)},
		{"stage_id": float64(1), "group_id": float64(2), "number": float64(1)},
		{"stage_id": float64(2), "group_id": float64(1), "number": float64(1)},
	})

	rows, err := s.Select(ctx, storage.Matches, storage.Match(map[string]any{
		"stage_id": float64(1), "group_id": float64(1),
	}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 match for stage 1 group 1, got %d", len(rows))
	}
}

func TestSelectPartialMatchOnMissingFieldExcludesRow(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Insert(ctx, storage.Participants, []map[string]any{{"name": "A"}})

	rows, err := s.Select(ctx, storage.Participants, storage.Match(map[string]any{"tournament_id": float64(9)}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestUpdateMergesFieldsWithoutClobberingOthers(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids, _ := s.Insert(ctx, storage.Matches, []map[string]any{
		{"number": float64(1), "status": float64(1)},
	})

	ok, err := s.Update(ctx, storage.Matches, storage.ByID(ids[0]), map[string]any{"status": float64(5)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ok {
		t.Fatalf("expected Update to report a row changed")
	}

	rows, _ := s.Select(ctx, storage.Matches, storage.ByID(ids[0]))
	if rows[0]["status"] != float64(5) {
		t.Fatalf("expected status updated to 5, got %v", rows[0]["status"])
	}
	if rows[0]["number"] != float64(1) {
		t.Fatalf("expected number field untouched, got %v", rows[0]["number"])
	}
}

func TestUpdateIgnoresIDInRecord(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids, _ := s.Insert(ctx, storage.Participants, []map[string]any{{"name": "A"}})

	s.Update(ctx, storage.Participants, storage.ByID(ids[0]), map[string]any{"id": float64(999), "name": "A2"})

	rows, _ := s.Select(ctx, storage.Participants, storage.ByID(ids[0]))
	if len(rows) != 1 {
		t.Fatalf("expected the row to still be addressable by its original id, got %v", rows)
	}
	if rows[0]["id"] != ids[0] {
		t.Fatalf("expected id unchanged at %d, got %v", ids[0], rows[0]["id"])
	}
}

func TestUpdateOnMissingRowReportsNoChange(t *testing.T) {
	s := New()
	ctx := context.Background()
	ok, err := s.Update(ctx, storage.Participants, storage.ByID(42), map[string]any{"name": "nope"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok {
		t.Fatalf("expected Update against a nonexistent id to report no change")
	}
}

func TestDeleteRemovesOnlyMatchingRows(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids, _ := s.Insert(ctx, storage.Participants, []map[string]any{
		{"name": "A"}, {"name": "B"},
	})

	ok, err := s.Delete(ctx, storage.Participants, storage.ByID(ids[0]))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Fatalf("expected Delete to report a row removed")
	}

	rows, _ := s.Select(ctx, storage.Participants, storage.All)
	if len(rows) != 1 || rows[0]["name"] != "B" {
		t.Fatalf("expected only row B to remain, got %v", rows)
	}
}

func TestSelectRowsAreIsolatedCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids, _ := s.Insert(ctx, storage.Participants, []map[string]any{{"name": "A"}})

	rows, _ := s.Select(ctx, storage.Participants, storage.ByID(ids[0]))
	rows[0]["name"] = "mutated"

	rows2, _ := s.Select(ctx, storage.Participants, storage.ByID(ids[0]))
	if rows2[0]["name"] != "A" {
		t.Fatalf("expected stored row unaffected by caller mutation, got %v", rows2[0]["name"])
	}
}

func TestEmptyTableSelectAllReturnsNoRows(t *testing.T) {
	s := New()
	rows, err := s.Select(context.Background(), storage.Standings, storage.All)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows from an untouched table, got %v", rows)
	}
}

func TestTypedHelpersRoundTripThroughJSON(t *testing.T) {
	type tournament struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	s := New()
	ctx := context.Background()

	ids, err := storage.Insert(ctx, s, storage.Tournaments, []tournament{{Name: "Spring Open"}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, found, err := storage.SelectOne[tournament](ctx, s, storage.Tournaments, storage.ByID(ids[0]))
	if err != nil {
		t.Fatalf("SelectOne: %v", err)
	}
	if !found {
		t.Fatalf("expected row to be found")
	}
	if got.ID != ids[0] || got.Name != "Spring Open" {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	if _, err := storage.Update(ctx, s, storage.Tournaments, storage.ByID(ids[0]), tournament{ID: ids[0], Name: "Spring Open II"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _, _ = storage.SelectOne[tournament](ctx, s, storage.Tournaments, storage.ByID(ids[0]))
	if got.Name != "Spring Open II" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}

	ok, err := storage.DeleteByID(ctx, s, storage.Tournaments, ids[0])
	if err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if !ok {
		t.Fatalf("expected DeleteByID to report a row removed")
	}
	_, found, _ = storage.SelectOne[tournament](ctx, s, storage.Tournaments, storage.ByID(ids[0]))
	if found {
		t.Fatalf("expected row gone after DeleteByID")
	}
}
