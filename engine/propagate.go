package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/graph"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// worklistItem is one match awaiting propagation, addressed by
// storage id so repeated pushes are trivially deduplicated by id.
type worklistItem struct {
	matchID int
}

// propagateCompletion pushes a newly Completed match's winner (and,
// for double elimination, loser) into every successor slot, iteratively
// recursing through matches that themselves complete because of a BYE
// on the other side (spec §4.4 step 2). Recursion is bounded by the
// stage's round count and implemented as an explicit worklist per
// spec §9, so there is no unbounded call stack.
func (m *Manager) propagateCompletion(ctx context.Context, stage models.Stage, match models.Match) error {
	shape, err := m.stageShape(ctx, stage)
	if err != nil {
		return err
	}

	work := []worklistItem{{matchID: match.ID}}
	seen := map[int]bool{}

	for len(work) > 0 {
		item := work[0]
		work = work[1:]
		if seen[item.matchID] {
			continue
		}
		seen[item.matchID] = true

		cur, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(item.matchID))
		if err != nil {
			return wrapStorage(err, "select match %d", item.matchID)
		}
		if !found || cur.Status != models.StatusCompleted {
			continue
		}

		winnerID, winnerBye, loserID, loserBye, _ := winnerLoser(cur)

		ref, err := m.matchRef(ctx, cur)
		if err != nil {
			return err
		}

		for _, e := range graph.Successors(shape, ref) {
			var participantID int
			var isBye bool
			switch e.Role {
			case graph.RoleWinner:
				participantID, isBye = winnerID, winnerBye
			case graph.RoleLoser:
				participantID, isBye = loserID, loserBye
			}

			successor, found, err := m.findByRef(ctx, stage.ID, e.Ref)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if successor.Status == models.StatusArchived {
				continue
			}

			newOpponent := models.Bye()
			if !isBye {
				newOpponent = models.ParticipantOpponent(participantID)
			}
			setSlot(&successor, e.Slot, newOpponent)
			successor.Status = computeStatus(successor.Opponent1, successor.Opponent2, successor.ChildCount)

			if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(successor.ID), successor); err != nil {
				return wrapStorage(err, "update successor match %d", successor.ID)
			}

			if successor.Status == models.StatusCompleted {
				work = append(work, worklistItem{matchID: successor.ID})
			}
		}

		if isGrandFinalFirstLeg(shape, ref) {
			if err := m.replayGrandFinalIfNeeded(ctx, stage, cur); err != nil {
				return err
			}
		}
	}
	return nil
}

// isGrandFinalFirstLeg reports whether ref addresses a double-elim
// stage's first grand-final match, the one whose outcome decides
// whether a bracket-reset second leg gets played (spec §4.2).
// graph.Successors intentionally has no edge out of the grand final
// group (a grand final match result feeds nothing else in the general
// case), so the GF1 -> GF2 wiring below is handled here instead of
// through the normal successor walk.
func isGrandFinalFirstLeg(shape graph.Shape, ref graph.Ref) bool {
	return shape.Type == models.StageDoubleElimination &&
		shape.GrandFinal == models.GrandFinalDouble &&
		ref.Group == models.GroupGrandFinal && ref.Round == 1
}

// grandFinalSecondLeg locates GF2, the sentinel match generateGrandFinal
// creates Archived and the bracket-reset rule may bring to life.
func (m *Manager) grandFinalSecondLeg(ctx context.Context, stageID int) (models.Match, bool, error) {
	return m.findByRef(ctx, stageID, graph.Ref{Group: models.GroupGrandFinal, Round: 2, Number: 1})
}

// replayGrandFinalIfNeeded implements the double-grand-final bracket
// reset: if the loser-bracket entrant (opponent2, per
// grandFinalPredecessors' slot wiring) won GF1, GF2 is unarchived and
// seeded with GF1's winner/loser so the two sides play again for the
// title. If the winner-bracket entrant (opponent1) won GF1 outright,
// GF2 stays the archived sentinel generateGrandFinal created.
func (m *Manager) replayGrandFinalIfNeeded(ctx context.Context, stage models.Stage, gf1 models.Match) error {
	if !gf1.Opponent2.Won() {
		return nil
	}
	gf2, found, err := m.grandFinalSecondLeg(ctx, stage.ID)
	if err != nil || !found {
		return err
	}
	gf2.Opponent1 = models.ParticipantOpponent(gf1.Opponent2.ParticipantID)
	gf2.Opponent2 = models.ParticipantOpponent(gf1.Opponent1.ParticipantID)
	gf2.Status = computeStatus(gf2.Opponent1, gf2.Opponent2, gf2.ChildCount)
	if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(gf2.ID), gf2); err != nil {
		return wrapStorage(err, "update grand final second leg %d", gf2.ID)
	}
	return nil
}

// unplayGrandFinalSecondLeg reverts replayGrandFinalIfNeeded when GF1
// is reset: GF2 goes back to being the archived sentinel, provided it
// hasn't itself been played (callers must have already run
// guardDownstreamCompleted, which checks exactly that).
func (m *Manager) unplayGrandFinalSecondLeg(ctx context.Context, stage models.Stage) error {
	gf2, found, err := m.grandFinalSecondLeg(ctx, stage.ID)
	if err != nil || !found || gf2.Status == models.StatusArchived {
		return err
	}
	gf2.Opponent1 = models.Placeholder(1)
	gf2.Opponent2 = models.Placeholder(2)
	gf2.Status = models.StatusArchived
	if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(gf2.ID), gf2); err != nil {
		return wrapStorage(err, "update grand final second leg %d", gf2.ID)
	}
	return nil
}

// propagateReset undoes propagateCompletion for a match whose result
// was just cleared: each successor's slot that was fed by this match
// is reverted to its placeholder, and the successor's status is
// recomputed. Callers must have already verified (guardDownstreamCompleted)
// that no successor is itself Completed.
func (m *Manager) propagateReset(ctx context.Context, stage models.Stage, match models.Match) error {
	shape, err := m.stageShape(ctx, stage)
	if err != nil {
		return err
	}
	ref, err := m.matchRef(ctx, match)
	if err != nil {
		return err
	}

	for _, e := range graph.Successors(shape, ref) {
		successor, found, err := m.findByRef(ctx, stage.ID, e.Ref)
		if err != nil {
			return err
		}
		if !found || successor.Status == models.StatusArchived {
			continue
		}

		setSlot(&successor, e.Slot, models.Placeholder(e.Slot))
		successor.Status = computeStatus(successor.Opponent1, successor.Opponent2, successor.ChildCount)

		if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(successor.ID), successor); err != nil {
			return wrapStorage(err, "update successor match %d", successor.ID)
		}
	}

	if isGrandFinalFirstLeg(shape, ref) {
		if err := m.unplayGrandFinalSecondLeg(ctx, stage); err != nil {
			return err
		}
	}
	return nil
}

func setSlot(match *models.Match, slot int, opponent models.Opponent) {
	if slot == 1 {
		match.Opponent1 = opponent
	} else {
		match.Opponent2 = opponent
	}
}

// runByeAutoAdvance implements spec §4.4's stage-creation-time rule:
// any round-1 match where one slot is a BYE is immediately Completed
// with the present participant as winner (or, if both slots are BYE,
// Completed with no winner), then propagation runs once per match.
func (m *Manager) runByeAutoAdvance(ctx context.Context, stage *models.Stage) error {
	matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stage.ID}))
	if err != nil {
		return wrapStorage(err, "select matches for stage %d", stage.ID)
	}
	for _, match := range matches {
		if match.Status == models.StatusArchived {
			continue
		}
		if match.Opponent1.IsEmpty() && match.Opponent2.IsEmpty() {
			if match.Status != models.StatusCompleted {
				continue
			}
			if err := m.propagateCompletion(ctx, *stage, match); err != nil {
				return err
			}
			continue
		}
		if match.Status == models.StatusCompleted {
			continue
		}
		if match.Opponent1.IsEmpty() && match.Opponent2.IsParticipant() {
			match.Opponent2 = match.Opponent2.WithResult(models.ResultWin, false)
			if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
				return wrapStorage(err, "update match %d", match.ID)
			}
			if err := m.propagateCompletion(ctx, *stage, match); err != nil {
				return err
			}
		} else if match.Opponent2.IsEmpty() && match.Opponent1.IsParticipant() {
			match.Opponent1 = match.Opponent1.WithResult(models.ResultWin, false)
			if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
				return wrapStorage(err, "update match %d", match.ID)
			}
			if err := m.propagateCompletion(ctx, *stage, match); err != nil {
				return err
			}
		}
	}
	return nil
}
