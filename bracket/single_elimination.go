package bracket

import (
	"fmt"

	"github.com/Dosada05/bracketengine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator { return &SingleEliminationGenerator{} }

func (g *SingleEliminationGenerator) Name() string { return "SingleElimination" }

// Generate implements C2 §4.2 "Single elimination". Round 1 receives
// real opponents (participants or BYEs) straight from the padded,
// ordered seed; every later round receives placeholder opponents
// whose resolution is left to the progression engine (C4), which
// folds BYEs through via the same propagation path used for ordinary
// results. This mirrors the teacher's node-based generator
// (brackets/single_elimination.go) but keeps BYE-resolution out of C2
// entirely, so a layout is structurally complete before any result
// exists.
func (g *SingleEliminationGenerator) Generate(params GenerateParams) ([]GeneratedMatch, error) {
	st := params.Stage
	slots, err := paddedSeed(st, params.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	matches, _ := generateWinnerBracket(st, models.GroupMain, slots, 0)

	if st.Settings.ConsolationFinal {
		rounds := log2(len(slots))
		if rounds >= 2 {
			semi := rounds - 1
			consolation := GeneratedMatch{
				UID:          fmt.Sprintf("G%d-R1-M1", models.GroupConsolation),
				GroupNumber:  models.GroupConsolation,
				RoundNumber:  1,
				Number:       1,
				Opponent1:    models.Placeholder(1),
				Opponent2:    models.Placeholder(2),
				Source1Group: models.GroupMain, Source1Round: semi, Source1Number: 1, Source1FromLoser: true,
				Source2Group: models.GroupMain, Source2Round: semi, Source2Number: 2, Source2FromLoser: true,
				ChildCount: st.Settings.MatchesChildCount,
			}
			matches = append(matches, consolation)
		}
	}

	return matches, nil
}

// generateWinnerBracket is shared by single and double elimination: it
// builds every round of a standard elimination bracket for the given
// group, starting from padded seed slots. The last parameter is
// unused: round 1 is always generated from the padded seed, so
// settings.skipFirstRound has no effect on the layout.
func generateWinnerBracket(st *models.Stage, group int, slots []int, _ int) ([]GeneratedMatch, int) {
	p := len(slots)
	rounds := log2(p)

	var out []GeneratedMatch
	matchesInRound := p / 2

	for i := 0; i < matchesInRound; i++ {
		out = append(out, GeneratedMatch{
			UID:         fmt.Sprintf("G%d-R1-M%d", group, i+1),
			GroupNumber: group,
			RoundNumber: 1,
			Number:      i + 1,
			Opponent1:   opponentForSeed(slots[2*i]),
			Opponent2:   opponentForSeed(slots[2*i+1]),
			ChildCount:  st.Settings.MatchesChildCount,
		})
	}

	for r := 2; r <= rounds; r++ {
		matchesInRound = p / (1 << uint(r))
		for i := 0; i < matchesInRound; i++ {
			number := i + 1
			out = append(out, GeneratedMatch{
				UID:          fmt.Sprintf("G%d-R%d-M%d", group, r, number),
				GroupNumber:  group,
				RoundNumber:  r,
				Number:       number,
				Opponent1:    models.Placeholder(2*number - 1),
				Opponent2:    models.Placeholder(2 * number),
				Source1Group: group, Source1Round: r - 1, Source1Number: 2*number - 1,
				Source2Group: group, Source2Round: r - 1, Source2Number: 2 * number,
				ChildCount: st.Settings.MatchesChildCount,
			})
		}
	}

	return out, rounds
}
