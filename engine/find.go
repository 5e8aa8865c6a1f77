// C3 finders: the query half of the derived match graph. Unlike
// propagation (progression.go), these never mutate state -- they just
// translate graph.Predecessors/Successors into persisted rows (spec
// §4.3).
package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/graph"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// FindMatch implements §6.3 find.match: a single match by id.
func (m *Manager) FindMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(matchID))
	if err != nil {
		return nil, wrapStorage(err, "select match %d", matchID)
	}
	if !found {
		return nil, ErrNotFound("match", matchID)
	}
	return &match, nil
}

// FindNextMatches implements §6.3 find.nextMatches: the successor
// match(es) of m, optionally filtered to the ones a given participant
// actually reaches given m's recorded outcome (spec §4.3). A zero
// participantID returns every successor regardless of outcome.
func (m *Manager) FindNextMatches(ctx context.Context, matchID int, participantID int) ([]models.Match, error) {
	match, err := m.FindMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(match.StageID))
	if err != nil {
		return nil, wrapStorage(err, "select stage %d", match.StageID)
	}
	if !found {
		return nil, ErrNotFound("stage", match.StageID)
	}
	shape, err := m.stageShape(ctx, stage)
	if err != nil {
		return nil, err
	}
	ref, err := m.matchRef(ctx, *match)
	if err != nil {
		return nil, err
	}

	var role graph.Role
	filterByRole := false
	if participantID != 0 {
		winnerID, winnerIsBye, loserID, loserIsBye, ok := winnerLoser(*match)
		if ok {
			switch {
			case !winnerIsBye && winnerID == participantID:
				role, filterByRole = graph.RoleWinner, true
			case !loserIsBye && loserID == participantID:
				role, filterByRole = graph.RoleLoser, true
			default:
				return nil, nil
			}
		}
	}

	var out []models.Match
	for _, e := range graph.Successors(shape, ref) {
		if filterByRole && e.Role != role {
			continue
		}
		successor, found, err := m.findByRef(ctx, stage.ID, e.Ref)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, successor)
		}
	}
	return out, nil
}

// FindPreviousMatches implements §6.3 find.previousMatches, the
// symmetric query to FindNextMatches.
func (m *Manager) FindPreviousMatches(ctx context.Context, matchID int) ([]models.Match, error) {
	match, err := m.FindMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(match.StageID))
	if err != nil {
		return nil, wrapStorage(err, "select stage %d", match.StageID)
	}
	if !found {
		return nil, ErrNotFound("stage", match.StageID)
	}
	shape, err := m.stageShape(ctx, stage)
	if err != nil {
		return nil, err
	}
	ref, err := m.matchRef(ctx, *match)
	if err != nil {
		return nil, err
	}

	var out []models.Match
	for _, e := range graph.Predecessors(shape, ref) {
		predecessor, found, err := m.findByRef(ctx, stage.ID, e.Ref)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, predecessor)
		}
	}
	return out, nil
}

// MatchLocation is the §6.3 find.matchLocation response: a match's
// full positional address plus its storage ids.
type MatchLocation struct {
	MatchID     int
	StageID     int
	GroupID     int
	RoundID     int
	GroupNumber int
	RoundNumber int
	MatchNumber int
}

// FindMatchLocation implements §6.3 find.matchLocation.
func (m *Manager) FindMatchLocation(ctx context.Context, matchID int) (*MatchLocation, error) {
	match, err := m.FindMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	ref, err := m.matchRef(ctx, *match)
	if err != nil {
		return nil, err
	}
	return &MatchLocation{
		MatchID:     match.ID,
		StageID:     match.StageID,
		GroupID:     match.GroupID,
		RoundID:     match.RoundID,
		GroupNumber: ref.Group,
		RoundNumber: ref.Round,
		MatchNumber: ref.Number,
	}, nil
}
