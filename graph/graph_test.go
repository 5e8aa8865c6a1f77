package graph

import (
	"testing"

	"github.com/Dosada05/bracketengine/models"
)

// allWBRefs enumerates every winner-bracket match coordinate for a
// WBRounds-round elimination bracket (round r has 2^(WBRounds-r) matches).
func allWBRefs(wbRounds int) []Ref {
	var out []Ref
	for r := 1; r <= wbRounds; r++ {
		count := 1 << uint(wbRounds-r)
		for n := 1; n <= count; n++ {
			out = append(out, Ref{Group: models.GroupWinners, Round: r, Number: n})
		}
	}
	return out
}

func allLBRefs(shape Shape) []Ref {
	var out []Ref
	total := shape.totalLBRounds()
	for r := 1; r <= total; r++ {
		// LB round r has the same match count as WB round ceil((r+2)/2).
		wbRoundEquivalent := (r + 3) / 2
		count := 1 << uint(shape.WBRounds-wbRoundEquivalent)
		if count < 1 {
			count = 1
		}
		for n := 1; n <= count; n++ {
			out = append(out, Ref{Group: models.GroupLosers, Round: r, Number: n})
		}
	}
	return out
}

// findEdgeTo reports whether edges contains an edge pointing at target
// with the given slot.
func findEdgeTo(edges []Edge, target Ref, slot int) bool {
	for _, e := range edges {
		if e.Ref == target && e.Slot == slot {
			return true
		}
	}
	return false
}

func TestSingleEliminationSuccessorsMatchPredecessors(t *testing.T) {
	for _, wbRounds := range []int{2, 3, 4, 5} {
		shape := Shape{Type: models.StageSingleElimination, WBRounds: wbRounds, GrandFinal: models.GrandFinalNone}
		for _, ref := range allWBRefs(wbRounds) {
			successors := Successors(shape, ref)
			for _, succEdge := range successors {
				preds := Predecessors(shape, succEdge.Ref)
				if !findEdgeTo(preds, ref, succEdge.Slot) {
					t.Fatalf("wbRounds=%d: successor edge %+v of %+v has no matching predecessor back-edge (preds=%+v)", wbRounds, succEdge, ref, preds)
				}
			}
		}
	}
}

func TestDoubleEliminationSuccessorsMatchPredecessors(t *testing.T) {
	for _, wbRounds := range []int{2, 3, 4, 5} {
		shape := Shape{Type: models.StageDoubleElimination, WBRounds: wbRounds, GrandFinal: models.GrandFinalSimple}
		refs := append(allWBRefs(wbRounds), allLBRefs(shape)...)
		for _, ref := range refs {
			successors := Successors(shape, ref)
			for _, succEdge := range successors {
				preds := Predecessors(shape, succEdge.Ref)
				if !findEdgeTo(preds, ref, succEdge.Slot) {
					t.Fatalf("wbRounds=%d: successor edge %+v of %+v has no matching predecessor back-edge (preds=%+v)", wbRounds, succEdge, ref, preds)
				}
			}
		}
	}
}

func TestRoundRobinHasNoEdges(t *testing.T) {
	shape := Shape{Type: models.StageRoundRobin}
	ref := Ref{Group: 1, Round: 1, Number: 1}
	if preds := Predecessors(shape, ref); preds != nil {
		t.Fatalf("round robin should have no predecessors, got %+v", preds)
	}
	if succs := Successors(shape, ref); succs != nil {
		t.Fatalf("round robin should have no successors, got %+v", succs)
	}
}

func TestWinnerBracketFinalHasNoSuccessorWithoutGrandFinal(t *testing.T) {
	shape := Shape{Type: models.StageSingleElimination, WBRounds: 3, GrandFinal: models.GrandFinalNone}
	final := Ref{Group: models.GroupWinners, Round: 3, Number: 1}
	if succs := Successors(shape, final); len(succs) != 0 {
		t.Fatalf("single-elim final should have no successor without a grand final, got %+v", succs)
	}
}

func TestGrandFinalHasNoSuccessors(t *testing.T) {
	shape := Shape{Type: models.StageDoubleElimination, WBRounds: 3, GrandFinal: models.GrandFinalDouble}
	gf := Ref{Group: models.GroupGrandFinal, Round: 1, Number: 1}
	if succs := Successors(shape, gf); succs != nil {
		t.Fatalf("grand final should have no successors, got %+v", succs)
	}
}

func TestConsolationFinalFedByBothSemifinalLosers(t *testing.T) {
	shape := Shape{Type: models.StageSingleElimination, WBRounds: 3, ConsolationFinal: true}
	preds := Predecessors(shape, Ref{Group: models.GroupConsolation, Round: 1, Number: 1})
	if len(preds) != 2 {
		t.Fatalf("expected 2 predecessors feeding the consolation final, got %+v", preds)
	}
	for _, p := range preds {
		if p.Role != RoleLoser {
			t.Fatalf("consolation final must be fed by semifinal LOSERS, got role %q", p.Role)
		}
		if p.Group != models.GroupWinners || p.Round != 2 {
			t.Fatalf("consolation final should be fed from WB semifinal round, got %+v", p)
		}
	}
}
