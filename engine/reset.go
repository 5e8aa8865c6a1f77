package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// ResetMatchResults implements §6.3 reset.matchResults: clears a
// match's score/result/forfeit, recomputing its status, and reverses
// any completion propagation already applied. Refuses with
// CannotResetDownstreamCompleted if any successor is already
// Completed (spec §4.4) -- nothing is mutated in that case.
func (m *Manager) ResetMatchResults(ctx context.Context, matchID int) (*models.Match, error) {
	stageID, err := m.matchStageID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	err = m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		match, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(matchID))
		if err != nil {
			return wrapStorage(err, "select match %d", matchID)
		}
		if !found {
			return ErrNotFound("match", matchID)
		}
		if match.Status == models.StatusArchived {
			return ErrInvalidTransition("match %d is archived", matchID)
		}

		stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(match.StageID))
		if err != nil {
			return wrapStorage(err, "select stage %d", match.StageID)
		}
		if !found {
			return ErrNotFound("stage", match.StageID)
		}

		wasCompleted := match.Status == models.StatusCompleted
		if wasCompleted {
			if err := m.guardDownstreamCompleted(ctx, stage, match); err != nil {
				return err
			}
		}

		match.Opponent1 = match.Opponent1.Cleared()
		match.Opponent2 = match.Opponent2.Cleared()
		match.Status = computeStatus(match.Opponent1, match.Opponent2, match.ChildCount)

		if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
			return wrapStorage(err, "update match %d", match.ID)
		}

		if wasCompleted {
			if err := m.propagateReset(ctx, stage, match); err != nil {
				return err
			}
		}
		result = &match
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResetMatchGameResults resets one child game and re-aggregates its
// parent, mirroring ResetMatchResults at the C5 level.
func (m *Manager) ResetMatchGameResults(ctx context.Context, gameID int) (*models.MatchGame, error) {
	stageID, err := m.matchGameStageID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var result *models.MatchGame
	err = m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		game, found, err := storage.SelectOne[models.MatchGame](ctx, m.store, storage.MatchGames, storage.ByID(gameID))
		if err != nil {
			return wrapStorage(err, "select match game %d", gameID)
		}
		if !found {
			return ErrNotFound("match game", gameID)
		}
		if game.Status == models.StatusArchived {
			return ErrInvalidTransition("match game %d is archived", gameID)
		}
		if err := m.guardParentDownstreamIfCompleted(ctx, game.ParentID); err != nil {
			return err
		}

		game.Opponent1 = game.Opponent1.Cleared()
		game.Opponent2 = game.Opponent2.Cleared()
		game.Status = computeStatus(game.Opponent1, game.Opponent2, 0)

		if _, err := storage.Update(ctx, m.store, storage.MatchGames, storage.ByID(game.ID), game); err != nil {
			return wrapStorage(err, "update match game %d", game.ID)
		}
		if err := m.reaggregateParent(ctx, game.ParentID); err != nil {
			return err
		}
		result = &game
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResetSeeding implements §6.3 reset.seeding: replaces round-robin
// opponents resolved by a prior confirmSeeding back to their
// {position:k} placeholder state, using the stage's stored SeedList to
// recover each participant's original position. Only valid while no
// match in the stage has a recorded result yet.
func (m *Manager) ResetSeeding(ctx context.Context, stageID int) error {
	return m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		order, err := m.GetSeeding(ctx, stageID)
		if err != nil {
			return err
		}
		positionOf := make(map[int]int, len(order))
		for i, participantID := range order {
			positionOf[participantID] = i + 1
		}

		matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select matches for stage %d", stageID)
		}
		for _, match := range matches {
			if match.Opponent1.HasResult() || match.Opponent2.HasResult() {
				return ErrInvalidTransition("stage %d has recorded results; cannot reset seeding", stageID)
			}
		}
		for _, match := range matches {
			changed := false
			if match.Opponent1.IsParticipant() {
				if pos, ok := positionOf[match.Opponent1.ParticipantID]; ok {
					match.Opponent1 = models.Placeholder(pos)
					changed = true
				}
			}
			if match.Opponent2.IsParticipant() {
				if pos, ok := positionOf[match.Opponent2.ParticipantID]; ok {
					match.Opponent2 = models.Placeholder(pos)
					changed = true
				}
			}
			if !changed {
				continue
			}
			match.Status = models.StatusLocked
			if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
				return wrapStorage(err, "update match %d", match.ID)
			}
		}
		return nil
	})
}
