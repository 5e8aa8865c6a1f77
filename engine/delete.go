// Cascading deletes per §3 Lifecycle: tournament -> stages -> groups
// -> rounds -> matches -> match_games; participants survive stage
// deletion but are removed with the tournament.
package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// DeleteMatch implements §6.3 delete.match: removes a single match and
// its child games. It does not attempt to repair successor
// placeholders left dangling -- that is reset.matchResults's job, and
// callers are expected to reset before deleting a match with recorded
// propagation.
func (m *Manager) DeleteMatch(ctx context.Context, matchID int) error {
	if _, err := storage.Delete(ctx, m.store, storage.MatchGames, storage.Match(map[string]any{"parent_id": matchID})); err != nil {
		return wrapStorage(err, "delete match games for match %d", matchID)
	}
	found, err := storage.DeleteByID(ctx, m.store, storage.Matches, matchID)
	if err != nil {
		return wrapStorage(err, "delete match %d", matchID)
	}
	if !found {
		return ErrNotFound("match", matchID)
	}
	return nil
}

// DeleteStage implements §6.3 delete.stage: removes every group, round,
// match, and match game belonging to the stage, plus its stored seed
// list, then the stage itself. Participants are untouched.
func (m *Manager) DeleteStage(ctx context.Context, stageID int) error {
	matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID}))
	if err != nil {
		return wrapStorage(err, "select matches for stage %d", stageID)
	}
	for _, match := range matches {
		if _, err := storage.Delete(ctx, m.store, storage.MatchGames, storage.Match(map[string]any{"parent_id": match.ID})); err != nil {
			return wrapStorage(err, "delete match games for match %d", match.ID)
		}
	}
	if _, err := storage.Delete(ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID})); err != nil {
		return wrapStorage(err, "delete matches for stage %d", stageID)
	}
	if _, err := storage.Delete(ctx, m.store, storage.Rounds, storage.Match(map[string]any{"stage_id": stageID})); err != nil {
		return wrapStorage(err, "delete rounds for stage %d", stageID)
	}
	if _, err := storage.Delete(ctx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stageID})); err != nil {
		return wrapStorage(err, "delete groups for stage %d", stageID)
	}
	if _, err := storage.Delete(ctx, m.store, storage.Standings, storage.Match(map[string]any{"stage_id": stageID})); err != nil {
		return wrapStorage(err, "delete standings for stage %d", stageID)
	}
	if _, err := storage.Delete(ctx, m.store, storage.Seedings, storage.Match(map[string]any{"stage_id": stageID})); err != nil {
		return wrapStorage(err, "delete seed list for stage %d", stageID)
	}
	found, err := storage.DeleteByID(ctx, m.store, storage.Stages, stageID)
	if err != nil {
		return wrapStorage(err, "delete stage %d", stageID)
	}
	if !found {
		return ErrNotFound("stage", stageID)
	}
	return nil
}

// DeleteTournament implements §6.3 delete.tournament: cascades through
// every stage (and everything DeleteStage removes), then its
// participants, then the tournament itself.
func (m *Manager) DeleteTournament(ctx context.Context, tournamentID int) error {
	stages, err := storage.Select[models.Stage](ctx, m.store, storage.Stages, storage.Match(map[string]any{"tournament_id": tournamentID}))
	if err != nil {
		return wrapStorage(err, "select stages for tournament %d", tournamentID)
	}
	for _, stage := range stages {
		if err := m.DeleteStage(ctx, stage.ID); err != nil {
			return err
		}
	}
	if _, err := storage.Delete(ctx, m.store, storage.Participants, storage.Match(map[string]any{"tournament_id": tournamentID})); err != nil {
		return wrapStorage(err, "delete participants for tournament %d", tournamentID)
	}
	found, err := storage.DeleteByID(ctx, m.store, storage.Tournaments, tournamentID)
	if err != nil {
		return wrapStorage(err, "delete tournament %d", tournamentID)
	}
	if !found {
		return ErrNotFound("tournament", tournamentID)
	}
	return nil
}
