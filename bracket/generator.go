// Package bracket implements C2: turning a stage's settings and a
// seeded participant list into the complete, correctly-ordered set of
// matches and their inter-match dependencies, mirroring the shape of
// the teacher's brackets.BracketGenerator interface but generalized to
// single elimination, double elimination, and round robin with group,
// round and BYE/placeholder semantics.
package bracket

import (
	"fmt"

	"github.com/Dosada05/bracketengine/models"
)

// GeneratedMatch is one match produced by a Generator, addressed by
// its generation-time coordinates rather than a storage id (storage
// hasn't assigned one yet). SourceGroup/SourceRound/SourceNumber==0
// means that slot is not fed by another generated match (it is either
// a resolved participant or a BYE at generation time).
type GeneratedMatch struct {
	UID string

	GroupNumber int
	RoundNumber int
	Number      int // 1-based; within (group, round) for elimination, consecutive across the whole group for round robin

	Opponent1 models.Opponent
	Opponent2 models.Opponent

	// Source{1,2}* identify, when non-zero, the generated match whose
	// winner feeds this opponent slot. They let the caller (the
	// manager's create.stage implementation) wire placeholder
	// `{position:k}` references into concrete successor links once
	// storage ids are known, without the generator needing to know
	// storage ids itself.
	Source1Group, Source1Round, Source1Number int
	Source2Group, Source2Round, Source2Number int

	// Source{1,2}FromLoser is set when the slot is fed by the LOSER of
	// the referenced match rather than its winner (loser-bracket feeds
	// from the winner bracket, and the single-elimination consolation
	// final).
	Source1FromLoser, Source2FromLoser bool

	ChildCount int
	Status     models.MatchStatus
}

// GenerateParams is the input to a Generator: the stage being built
// and the tournament's seed list (participant ids) in ORIGINAL
// (unordered) registration order; the generator is responsible for
// applying seeding internally.
type GenerateParams struct {
	Stage        *models.Stage
	ParticipantIDs []int
}

// Generator produces the match graph for one stage type, pure and
// deterministic: same params always yields the same layout.
type Generator interface {
	Generate(params GenerateParams) ([]GeneratedMatch, error)
	Name() string
}

// ForType resolves the Generator implementing a given stage type,
// mirroring the teacher's bracketService switch on Format.BracketType.
func ForType(t models.StageType) (Generator, error) {
	switch t {
	case models.StageSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.StageDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.StageRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("bracket: unsupported stage type %q", t)
	}
}
