// C5: the best-of aggregator. Parent match scores are a read-only
// projection of child game outcomes once child_count > 0; updates flow
// through update.matchGame and are re-aggregated into the parent here
// (spec §4.5).
package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// UpdateMatchGameInput is the §6.3 update.matchGame payload.
type UpdateMatchGameInput struct {
	ID        int
	Opponent1 *OpponentPatch
	Opponent2 *OpponentPatch
}

// UpdateMatchGame applies the same validation/derivation rules as
// UpdateMatch to one child game, then re-aggregates its parent match.
func (m *Manager) UpdateMatchGame(ctx context.Context, in UpdateMatchGameInput) (*models.MatchGame, error) {
	stageID, err := m.matchGameStageID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	var result *models.MatchGame
	err = m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		game, found, err := storage.SelectOne[models.MatchGame](ctx, m.store, storage.MatchGames, storage.ByID(in.ID))
		if err != nil {
			return wrapStorage(err, "select match game %d", in.ID)
		}
		if !found {
			return ErrNotFound("match game", in.ID)
		}
		if game.Status == models.StatusArchived {
			return ErrInvalidTransition("match game %d is archived", in.ID)
		}
		if err := m.guardParentDownstreamIfCompleted(ctx, game.ParentID); err != nil {
			return err
		}

		updated, err := applyOpponentPatches(game.Opponent1, game.Opponent2, in.Opponent1, in.Opponent2)
		if err != nil {
			return err
		}
		game.Opponent1, game.Opponent2 = updated[0], updated[1]
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

// reaggregateParent recomputes a best-of parent match's scores/result
// from its child games (spec §4.5) and, if the parent newly completes
// or re-opens, runs the same C4 propagation UpdateMatch would.
func (m *Manager) reaggregateParent(ctx context.Context, parentID int) error {
	parent, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(parentID))
	if err != nil {
		return wrapStorage(err, "select parent match %d", parentID)
	}
	if !found {
		return ErrNotFound("match", parentID)
	}

	games, err := storage.Select[models.MatchGame](ctx, m.store, storage.MatchGames, storage.Match(map[string]any{"parent_id": parentID}))
	if err != nil {
		return wrapStorage(err, "select games for match %d", parentID)
	}

	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(parent.StageID))
	if err != nil {
		return wrapStorage(err, "select stage %d", parent.StageID)
	}
	if !found {
		return ErrNotFound("stage", parent.StageID)
	}

	wins1, wins2 := countGameWins(games)
	allGamesPlayed := parent.ChildCount > 0 && countDecided(games) >= parent.ChildCount

	threshold := models.WinThreshold(parent.ChildCount)
	oldStatus := parent.Status
	newOpponent1 := parent.Opponent1.Cleared().WithScore(wins1)
	newOpponent2 := parent.Opponent2.Cleared().WithScore(wins2)

	var newStatus models.MatchStatus
	switch {
	case wins1 >= threshold:
		newOpponent1 = newOpponent1.WithResult(models.ResultWin, false)
		newOpponent2 = newOpponent2.WithResult(models.ResultLoss, false)
		newStatus = models.StatusCompleted
	case wins2 >= threshold:
		newOpponent2 = newOpponent2.WithResult(models.ResultWin, false)
		newOpponent1 = newOpponent1.WithResult(models.ResultLoss, false)
		newStatus = models.StatusCompleted
	case allGamesPlayed && stage.Settings.AllowDrawBoEven:
		// Every game played, neither side reached the win threshold,
		// and the stage opted into Bo-even draws (spec §4.5/§9): the
		// parent completes with no winner on either side.
		newStatus = models.StatusCompleted
	default:
		if wins1 > 0 || wins2 > 0 {
			newStatus = models.StatusRunning
		} else {
			newStatus = models.StatusReady
		}
	}

	// Check the reset-rejection contract (spec §4.4) before writing
	// anything: if this re-aggregation would pull the parent out of
	// Completed while one of its successors is already Completed, the
	// whole operation must be refused with no storage mutation at all.
	if oldStatus == models.StatusCompleted && newStatus != models.StatusCompleted {
		if err := m.guardDownstreamCompleted(ctx, stage, parent); err != nil {
			return err
		}
	}

	parent.Opponent1, parent.Opponent2, parent.Status = newOpponent1, newOpponent2, newStatus

	if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(parent.ID), parent); err != nil {
		return wrapStorage(err, "update parent match %d", parent.ID)
	}

	if parent.Status == models.StatusCompleted {
		// Remaining undecided games are archived once the series is
		// decided (spec §4.5).
		for _, g := range games {
			if g.Status != models.StatusCompleted {
				g.Status = models.StatusArchived
				if _, err := storage.Update(ctx, m.store, storage.MatchGames, storage.ByID(g.ID), g); err != nil {
					return wrapStorage(err, "archive game %d", g.ID)
				}
			}
		}
	}

	if oldStatus != models.StatusCompleted && parent.Status == models.StatusCompleted {
		return m.propagateCompletion(ctx, stage, parent)
	}
	if oldStatus == models.StatusCompleted && parent.Status != models.StatusCompleted {
		return m.propagateReset(ctx, stage, parent)
	}
	return nil
}

// guardParentDownstreamIfCompleted conservatively enforces the reset-
// rejection contract (spec §4.4) before any child-game row is written:
// a parent that is already Completed has every undecided game Archived
// (spec §4.5), so the only completed games left are the ones whose
// win counts produced that result -- touching any of them can pull the
// parent back out of Completed, which must be refused up front (not
// after a partial write) if a successor already depends on it.
func (m *Manager) guardParentDownstreamIfCompleted(ctx context.Context, parentID int) error {
	parent, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(parentID))
	if err != nil {
		return wrapStorage(err, "select parent match %d", parentID)
	}
	if !found {
		return ErrNotFound("match", parentID)
	}
	if parent.Status != models.StatusCompleted {
		return nil
	}
	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(parent.StageID))
	if err != nil {
		return wrapStorage(err, "select stage %d", parent.StageID)
	}
	if !found {
		return ErrNotFound("stage", parent.StageID)
	}
	return m.guardDownstreamCompleted(ctx, stage, parent)
}

// countGameWins tallies completed child game wins per side, the basis
// for both re-aggregation and get.currentRace.
func countGameWins(games []models.MatchGame) (wins1, wins2 int) {
	for _, g := range games {
		if g.Status != models.StatusCompleted {
			continue
		}
		if g.Opponent1.Won() {
			wins1++
		} else if g.Opponent2.Won() {
			wins2++
		}
	}
	return wins1, wins2
}

// countDecided counts child games that have actually been played.
func countDecided(games []models.MatchGame) int {
	n := 0
	for _, g := range games {
		if g.Status == models.StatusCompleted {
			n++
		}
	}
	return n
}
