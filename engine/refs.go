package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/graph"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// matchRef resolves a persisted match's storage-id coordinates
// (GroupID, RoundID) into the positional coordinates (group number,
// round number, match number) C3's graph functions operate on.
func (m *Manager) matchRef(ctx context.Context, match models.Match) (graph.Ref, error) {
	group, found, err := storage.SelectOne[models.Group](ctx, m.store, storage.Groups, storage.ByID(match.GroupID))
	if err != nil {
		return graph.Ref{}, wrapStorage(err, "select group %d", match.GroupID)
	}
	if !found {
		return graph.Ref{}, ErrNotFound("group", match.GroupID)
	}
	round, found, err := storage.SelectOne[models.Round](ctx, m.store, storage.Rounds, storage.ByID(match.RoundID))
	if err != nil {
		return graph.Ref{}, wrapStorage(err, "select round %d", match.RoundID)
	}
	if !found {
		return graph.Ref{}, ErrNotFound("round", match.RoundID)
	}
	return graph.Ref{Group: group.Number, Round: round.Number, Number: match.Number}, nil
}

// matchStageID looks up the stage a match belongs to without pulling
// the whole row, just far enough to pick a stage lock before the real
// read-modify-write work begins.
func (m *Manager) matchStageID(ctx context.Context, matchID int) (int, error) {
	match, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(matchID))
	if err != nil {
		return 0, wrapStorage(err, "select match %d", matchID)
	}
	if !found {
		return 0, ErrNotFound("match", matchID)
	}
	return match.StageID, nil
}

// matchGameStageID resolves a match game's stage via its parent match,
// mirroring matchStageID for the C5 best-of operations.
func (m *Manager) matchGameStageID(ctx context.Context, gameID int) (int, error) {
	game, found, err := storage.SelectOne[models.MatchGame](ctx, m.store, storage.MatchGames, storage.ByID(gameID))
	if err != nil {
		return 0, wrapStorage(err, "select match game %d", gameID)
	}
	if !found {
		return 0, ErrNotFound("match game", gameID)
	}
	return m.matchStageID(ctx, game.ParentID)
}

// findByRef resolves positional coordinates back into a persisted
// match row, the inverse of matchRef.
func (m *Manager) findByRef(ctx context.Context, stageID int, ref graph.Ref) (models.Match, bool, error) {
	groups, err := storage.Select[models.Group](ctx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stageID, "number": ref.Group}))
	if err != nil {
		return models.Match{}, false, wrapStorage(err, "select group %d of stage %d", ref.Group, stageID)
	}
	if len(groups) == 0 {
		return models.Match{}, false, nil
	}
	rounds, err := storage.Select[models.Round](ctx, m.store, storage.Rounds, storage.Match(map[string]any{"group_id": groups[0].ID, "number": ref.Round}))
	if err != nil {
		return models.Match{}, false, wrapStorage(err, "select round %d of group %d", ref.Round, groups[0].ID)
	}
	if len(rounds) == 0 {
		return models.Match{}, false, nil
	}
	matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"round_id": rounds[0].ID, "number": ref.Number}))
	if err != nil {
		return models.Match{}, false, wrapStorage(err, "select match %d of round %d", ref.Number, rounds[0].ID)
	}
	if len(matches) == 0 {
		return models.Match{}, false, nil
	}
	return matches[0], true, nil
}
