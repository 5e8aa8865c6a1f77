// Package graph implements C3: the match graph is never persisted as
// edges (spec §9 "No persisted edges") — it is reproduced on demand
// from a match's positional coordinates (stage type, group, round,
// match number) using the same closed-form placement rules the
// bracket package uses to generate the layout in the first place. This
// keeps storage schema simple and avoids denormalized edges drifting
// out of sync with the generated layout, per spec §4.3.
package graph

import "github.com/Dosada05/bracketengine/models"

// Ref addresses a match by its positional coordinates within a stage.
type Ref struct {
	Group  int
	Round  int
	Number int
}

// Role describes which outcome of the endpoint match an edge carries.
type Role string

const (
	RoleWinner Role = "winner"
	RoleLoser  Role = "loser"
)

// Edge is one end of a predecessor/successor relationship: the
// referenced match, the slot (1 or 2) on the SUBJECT side the edge
// fills or drains, and which of the endpoint match's outcomes (winner
// or loser) it carries.
type Edge struct {
	Ref
	Slot int
	Role Role
}

// Shape captures the structural parameters C3 needs to compute
// predecessors/successors without regenerating the whole bracket:
// the stage type, winner-bracket round count (k, i.e. log2 of the
// padded elimination size), whether a consolation final exists, and
// the configured grand-final variant. Round-robin stages have no
// predecessors or successors (spec §4.3).
type Shape struct {
	Type             models.StageType
	WBRounds         int
	ConsolationFinal bool
	GrandFinal       models.GrandFinalMode
}

func (s Shape) totalLBRounds() int { return 2 * (s.WBRounds - 1) }

// lbRoundSize mirrors bracket.generateLoserBracket's sizeOf: the
// number of matches in loser-bracket round r of a winner bracket with
// k rounds. Needed here (rather than reading it off the generated
// layout) because the match graph is derived purely from positional
// coordinates, never from persisted edges (spec §9).
func lbRoundSize(k, r int) int {
	ceilHalf := (r + 1) / 2
	return 1 << uint(k-ceilHalf-1)
}

// Predecessors returns the match(es) feeding each of ref's opponent
// slots, for any ref within the stage's generated layout.
func Predecessors(shape Shape, ref Ref) []Edge {
	if shape.Type == models.StageRoundRobin {
		return nil
	}

	switch ref.Group {
	case models.GroupWinners:
		return winnerBracketPredecessors(ref)
	case models.GroupLosers:
		// GroupConsolation shares this value; single elimination has no
		// loser bracket, so group 2 there is the consolation final.
		if shape.Type == models.StageSingleElimination {
			return consolationPredecessors(shape, ref)
		}
		return loserBracketPredecessors(shape, ref)
	case models.GroupGrandFinal:
		return grandFinalPredecessors(shape, ref)
	default:
		return nil
	}
}

func winnerBracketPredecessors(ref Ref) []Edge {
	if ref.Round <= 1 {
		return nil
	}
	return []Edge{
		{Ref: Ref{models.GroupWinners, ref.Round - 1, 2*ref.Number - 1}, Slot: 1, Role: RoleWinner},
		{Ref: Ref{models.GroupWinners, ref.Round - 1, 2 * ref.Number}, Slot: 2, Role: RoleWinner},
	}
}

func consolationPredecessors(shape Shape, ref Ref) []Edge {
	if !shape.ConsolationFinal || ref.Round != 1 {
		return nil
	}
	semi := shape.WBRounds - 1
	if semi < 1 {
		return nil
	}
	return []Edge{
		{Ref: Ref{models.GroupWinners, semi, 1}, Slot: 1, Role: RoleLoser},
		{Ref: Ref{models.GroupWinners, semi, 2}, Slot: 2, Role: RoleLoser},
	}
}

func loserBracketPredecessors(shape Shape, ref Ref) []Edge {
	switch {
	case ref.Round == 1:
		return []Edge{
			{Ref: Ref{models.GroupWinners, 1, 2*ref.Number - 1}, Slot: 1, Role: RoleLoser},
			{Ref: Ref{models.GroupWinners, 1, 2 * ref.Number}, Slot: 2, Role: RoleLoser},
		}
	case ref.Round%2 == 0:
		wbFeeder := ref.Round/2 + 1
		n := lbRoundSize(shape.WBRounds, ref.Round)
		crossed := n - ref.Number + 1
		return []Edge{
			{Ref: Ref{models.GroupLosers, ref.Round - 1, ref.Number}, Slot: 1, Role: RoleWinner},
			{Ref: Ref{models.GroupWinners, wbFeeder, crossed}, Slot: 2, Role: RoleLoser},
		}
	default:
		return []Edge{
			{Ref: Ref{models.GroupLosers, ref.Round - 1, 2*ref.Number - 1}, Slot: 1, Role: RoleWinner},
			{Ref: Ref{models.GroupLosers, ref.Round - 1, 2 * ref.Number}, Slot: 2, Role: RoleWinner},
		}
	}
}

func grandFinalPredecessors(shape Shape, ref Ref) []Edge {
	if ref.Round == 1 {
		edges := []Edge{
			{Ref: Ref{models.GroupWinners, shape.WBRounds, 1}, Slot: 1, Role: RoleWinner},
		}
		if shape.totalLBRounds() > 0 {
			edges = append(edges, Edge{Ref: Ref{models.GroupLosers, shape.totalLBRounds(), 1}, Slot: 2, Role: RoleWinner})
		}
		return edges
	}
	// GF2 (double grand final only) is fed by GF1 itself: the WB
	// entrant occupies slot1 again if they won GF1 (in which case
	// GF2 never plays), and the LB entrant who WON GF1 (i.e. was the
	// "loser" side of GF1 from the WB entrant's perspective) re-enters
	// slot2. This back-reference is resolved dynamically by the
	// progression engine, not by static generation.
	return []Edge{
		{Ref: Ref{models.GroupGrandFinal, 1, 1}, Slot: 1, Role: RoleWinner},
		{Ref: Ref{models.GroupGrandFinal, 1, 1}, Slot: 2, Role: RoleLoser},
	}
}

// Successors returns the destination match(es) a ref's winner and
// loser advance to, mirroring Predecessors in the opposite direction.
func Successors(shape Shape, ref Ref) []Edge {
	if shape.Type == models.StageRoundRobin {
		return nil
	}

	switch ref.Group {
	case models.GroupWinners:
		return winnerBracketSuccessors(shape, ref)
	case models.GroupLosers:
		// GroupConsolation shares this value; the single-elimination
		// consolation final has no successors.
		if shape.Type == models.StageSingleElimination {
			return nil
		}
		return loserBracketSuccessors(shape, ref)
	case models.GroupGrandFinal:
		return nil // grand final matches have no successors
	default:
		return nil
	}
}

func winnerBracketSuccessors(shape Shape, ref Ref) []Edge {
	var out []Edge

	if ref.Round < shape.WBRounds {
		nextNumber := (ref.Number + 1) / 2
		slot := 1
		if ref.Number%2 == 0 {
			slot = 2
		}
		out = append(out, Edge{Ref: Ref{models.GroupWinners, ref.Round + 1, nextNumber}, Slot: slot, Role: RoleWinner})
	} else if shape.GrandFinal != models.GrandFinalNone && shape.GrandFinal != "" {
		out = append(out, Edge{Ref: Ref{models.GroupGrandFinal, 1, 1}, Slot: 1, Role: RoleWinner})
	}

	if shape.Type == models.StageDoubleElimination {
		if ref.Round == 1 {
			nextNumber := (ref.Number + 1) / 2
			slot := 1
			if ref.Number%2 == 0 {
				slot = 2
			}
			out = append(out, Edge{Ref: Ref{models.GroupLosers, 1, nextNumber}, Slot: slot, Role: RoleLoser})
		} else {
			lbRound := 2 * (ref.Round - 1)
			n := lbRoundSize(shape.WBRounds, lbRound)
			crossed := n - ref.Number + 1
			out = append(out, Edge{Ref: Ref{models.GroupLosers, lbRound, crossed}, Slot: 2, Role: RoleLoser})
		}
	} else if shape.ConsolationFinal && ref.Round == shape.WBRounds-1 {
		out = append(out, Edge{Ref: Ref{models.GroupConsolation, 1, 1}, Slot: ref.Number, Role: RoleLoser})
	}

	return out
}

func loserBracketSuccessors(shape Shape, ref Ref) []Edge {
	total := shape.totalLBRounds()
	if ref.Round == total {
		if shape.GrandFinal != models.GrandFinalNone && shape.GrandFinal != "" {
			return []Edge{{Ref: Ref{models.GroupGrandFinal, 1, 1}, Slot: 2, Role: RoleWinner}}
		}
		return nil
	}

	if ref.Round%2 == 1 {
		// Minor (or round 1) -> next round is major, same index.
		return []Edge{{Ref: Ref{models.GroupLosers, ref.Round + 1, ref.Number}, Slot: 1, Role: RoleWinner}}
	}
	// Major -> next round is minor, halved index.
	nextNumber := (ref.Number + 1) / 2
	slot := 1
	if ref.Number%2 == 0 {
		slot = 2
	}
	return []Edge{{Ref: Ref{models.GroupLosers, ref.Round + 1, nextNumber}, Slot: slot, Role: RoleWinner}}
}
