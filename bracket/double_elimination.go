package bracket

import (
	"fmt"

	"github.com/Dosada05/bracketengine/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator { return &DoubleEliminationGenerator{} }

func (g *DoubleEliminationGenerator) Name() string { return "DoubleElimination" }

// Generate implements C2 §4.2 "Double elimination": a winner bracket
// identical to single elimination, a loser bracket built from the
// standard "major/minor" skip-1-reverse mapping of WB losers, and a
// grand final whose shape depends on settings.GrandFinal. Modeled after
// the teacher's separate single/double generator split
// (brackets/single_elimination.go has no LB counterpart in the
// teacher; the major/minor mapping below is this engine's own, derived
// from spec §4.2 since the teacher repo never implemented a loser
// bracket).
func (g *DoubleEliminationGenerator) Generate(params GenerateParams) ([]GeneratedMatch, error) {
	st := params.Stage
	slots, err := paddedSeed(st, params.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	p := len(slots)
	k := log2(p)
	if p < 4 {
		return nil, fmt.Errorf("bracket: double elimination needs at least 4 slots, got %d", p)
	}

	wb, wbRounds := generateWinnerBracket(st, models.GroupWinners, slots, 0)
	out := append([]GeneratedMatch{}, wb...)

	lb := generateLoserBracket(st, models.GroupLosers, wbRounds, k)
	out = append(out, lb...)

	gf := generateGrandFinal(st, wbRounds, k)
	out = append(out, gf...)

	return out, nil
}

// generateLoserBracket builds the 2*(k-1) loser-bracket rounds for a
// winner bracket of k rounds over 2^k slots, per spec §4.2.2's
// "major/minor" pattern: round 1 takes both WB-round-1 losers of a
// pair directly; every later ODD round (a "minor" round) is a pure LB
// consolidation pairing the previous round's two winners against each
// other (no new WB losers enter); every EVEN round (a "major" round)
// admits one new WB loser per match alongside the previous LB round's
// winner. This alternation is what keeps a participant from meeting
// the same WB-round lineage twice in a row. Round sizes follow
// 2^(k - ceil(r/2) - 1), matching the WB round that loses into LB
// round r's major slot at feeder round r/2 + 1.
func generateLoserBracket(st *models.Stage, group int, wbRounds int, k int) []GeneratedMatch {
	var out []GeneratedMatch
	totalLBRounds := 2 * (k - 1)
	if totalLBRounds <= 0 {
		return out
	}

	sizeOf := func(r int) int {
		ceilHalf := (r + 1) / 2
		return 1 << uint(k-ceilHalf-1)
	}

	for r := 1; r <= totalLBRounds; r++ {
		n := sizeOf(r)

		for i := 0; i < n; i++ {
			number := i + 1
			m := GeneratedMatch{
				UID:         fmt.Sprintf("G%d-R%d-M%d", group, r, number),
				GroupNumber: group,
				RoundNumber: r,
				Number:      number,
				ChildCount:  st.Settings.MatchesChildCount,
			}

			switch {
			case r == 1:
				// Round 1: both slots are the two WB-round-1 losers of
				// the matching pair.
				m.Opponent1 = models.Placeholder(1)
				m.Source1Group, m.Source1Round, m.Source1Number = models.GroupWinners, 1, 2*number-1
				m.Source1FromLoser = true
				m.Opponent2 = models.Placeholder(2)
				m.Source2Group, m.Source2Round, m.Source2Number = models.GroupWinners, 1, 2*number
				m.Source2FromLoser = true
			case r%2 == 0:
				// Major round: slot 1 is the previous LB round's
				// winner in the same slot, slot 2 is the new loser
				// dropping from WB round r/2+1, crossed to the
				// mirrored match index (n-number+1) rather than the
				// same index -- spec §4.2.2's "skip-1, reverse"
				// pattern. Without the cross, the LB survivor in slot
				// 1 and the incoming WB loser in slot 2 both trace
				// back to the same WB round-1 sub-bracket and can
				// rematch an earlier WB pairing before the grand
				// final (spec §8's no-rematch property).
				wbFeederRound := r/2 + 1
				crossed := n - number + 1
				m.Opponent1 = models.Placeholder(1)
				m.Source1Group, m.Source1Round, m.Source1Number = group, r-1, number
				m.Opponent2 = models.Placeholder(2)
				m.Source2Group, m.Source2Round, m.Source2Number = models.GroupWinners, wbFeederRound, crossed
				m.Source2FromLoser = true
			default:
				// Minor round (odd, >1): pure LB consolidation,
				// pairing the previous round's winners against each
				// other with no new WB losers.
				m.Opponent1 = models.Placeholder(1)
				m.Source1Group, m.Source1Round, m.Source1Number = group, r-1, 2*number-1
				m.Opponent2 = models.Placeholder(2)
				m.Source2Group, m.Source2Round, m.Source2Number = group, r-1, 2*number
			}

			out = append(out, m)
		}
	}
	return out
}

// generateGrandFinal builds group 3 per settings.GrandFinal. In the
// 'double' variant, GF2 always exists in the layout (kept as a stable
// index) but starts life Archived; the progression engine unarchives
// it only if the loser-bracket winner wins GF1 (spec §4.2.3).
func generateGrandFinal(st *models.Stage, wbRounds int, k int) []GeneratedMatch {
	if st.Settings.GrandFinal == models.GrandFinalNone || st.Settings.GrandFinal == "" {
		return nil
	}

	gf1 := GeneratedMatch{
		UID:          fmt.Sprintf("G%d-R1-M1", models.GroupGrandFinal),
		GroupNumber:  models.GroupGrandFinal,
		RoundNumber:  1,
		Number:       1,
		Opponent1:    models.Placeholder(1),
		Opponent2:    models.Placeholder(2),
		Source1Group: models.GroupWinners, Source1Round: wbRounds, Source1Number: 1,
		ChildCount: st.Settings.MatchesChildCount,
	}
	if lastLBRound := 2 * (k - 1); lastLBRound > 0 {
		gf1.Source2Group, gf1.Source2Round, gf1.Source2Number = models.GroupLosers, lastLBRound, 1
		gf1.Source2FromLoser = false
	}

	out := []GeneratedMatch{gf1}

	if st.Settings.GrandFinal == models.GrandFinalDouble {
		gf2 := GeneratedMatch{
			UID:          fmt.Sprintf("G%d-R2-M1", models.GroupGrandFinal),
			GroupNumber:  models.GroupGrandFinal,
			RoundNumber:  2,
			Number:       1,
			Opponent1:    models.Placeholder(1),
			Opponent2:    models.Placeholder(2),
			Source1Group: models.GroupGrandFinal, Source1Round: 1, Source1Number: 1,
			Source2Group: models.GroupGrandFinal, Source2Round: 1, Source2Number: 1, Source2FromLoser: true,
			ChildCount: st.Settings.MatchesChildCount,
			// Status starts Archived: it only comes alive if GF1's
			// winner coincides with the loser-bracket entrant (i.e.
			// the LB finalist beat the WB finalist in GF1), handled
			// by the progression engine, not at generation time.
			Status: models.StatusArchived,
		}
		out = append(out, gf2)
	}

	return out
}
