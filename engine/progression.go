// C4: the progression engine. On every score update it validates
// input, re-derives the updated match's status from the §3
// invariants, and propagates participants/statuses to downstream
// matches via the C3 match graph, including idempotent reversal when
// a completed match is reopened (spec §4.4).
package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/graph"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// OpponentPatch is the partial update accepted for one side of a
// match in update.match / update.matchGame.
type OpponentPatch struct {
	// ParticipantID, when non-zero, must match the participant
	// currently occupying the slot (spec §4.4 InvalidOpponent check).
	ParticipantID int
	Score         *int
	Result        *models.Result
	Forfeit       *bool
}

// UpdateMatchInput is the §6.3 update.match payload.
type UpdateMatchInput struct {
	ID        int
	Opponent1 *OpponentPatch
	Opponent2 *OpponentPatch
}

// UpdateMatch implements §6.3 update.match / C4's entry point.
func (m *Manager) UpdateMatch(ctx context.Context, in UpdateMatchInput) (*models.Match, error) {
	stageID, err := m.matchStageID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	var result *models.Match
	err = m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		match, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(in.ID))
		if err != nil {
			return wrapStorage(err, "select match %d", in.ID)
		}
		if !found {
			return ErrNotFound("match", in.ID)
		}
		if match.Status == models.StatusArchived {
			return ErrInvalidTransition("match %d is archived", in.ID)
		}
		if match.ChildCount > 0 {
			if (in.Opponent1 != nil && in.Opponent1.Score != nil) || (in.Opponent2 != nil && in.Opponent2.Score != nil) {
				return ErrUseMatchGameUpdate(in.ID)
			}
		}

		updated, err := applyOpponentPatches(match.Opponent1, match.Opponent2, in.Opponent1, in.Opponent2)
		if err != nil {
			return err
		}
		match.Opponent1, match.Opponent2 = updated[0], updated[1]

		oldStatus := match.Status
		match.Status = computeStatus(match.Opponent1, match.Opponent2, match.ChildCount)

		stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(match.StageID))
		if err != nil {
			return wrapStorage(err, "select stage %d", match.StageID)
		}
		if !found {
			return ErrNotFound("stage", match.StageID)
		}

		if oldStatus == models.StatusCompleted && match.Status != models.StatusCompleted {
			if err := m.guardDownstreamCompleted(ctx, stage, match); err != nil {
				return err
			}
		}

		if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
			return wrapStorage(err, "update match %d", match.ID)
		}

		if oldStatus != models.StatusCompleted && match.Status == models.StatusCompleted {
			if err := m.propagateCompletion(ctx, stage, match); err != nil {
				return err
			}
		} else if oldStatus == models.StatusCompleted && match.Status != models.StatusCompleted {
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

// applyOpponentPatches merges the caller's partial opponent updates
// into the stored opponents, validating InvalidOpponent/InvalidScore/
// InvalidResult per spec §4.4, and returns the two merged opponents.
// Scores have no upper bound, here or in bestof.go's UpdateMatchGame.
// A parent match's score never reaches here directly, since
// UpdateMatch rejects score patches on any match with ChildCount > 0
// and routes callers to update.matchGame instead
// (ErrUseMatchGameUpdate above).
func applyOpponentPatches(o1, o2 models.Opponent, p1, p2 *OpponentPatch) ([2]models.Opponent, error) {
	merged := [2]models.Opponent{o1, o2}
	patches := [2]*OpponentPatch{p1, p2}

	for i, patch := range patches {
		if patch == nil {
			continue
		}
		cur := merged[i]
		if patch.ParticipantID != 0 {
			if !cur.IsParticipant() || cur.ParticipantID != patch.ParticipantID {
				return merged, ErrInvalidOpponent("opponent %d is not participant %d", i+1, patch.ParticipantID)
			}
		} else if !cur.IsParticipant() {
			return merged, ErrInvalidOpponent("opponent %d slot has no participant to update", i+1)
		}
		if patch.Score != nil {
			if *patch.Score < 0 {
				return merged, ErrInvalidScore("score must be >= 0, got %d", *patch.Score)
			}
			cur = cur.WithScore(*patch.Score)
		}
		if patch.Forfeit != nil {
			cur.Forfeit = *patch.Forfeit
		}
		if patch.Result != nil {
			cur = cur.WithResult(*patch.Result, cur.Forfeit)
		}
		merged[i] = cur
	}

	o1n, o2n := merged[0], merged[1]
	if o1n.Won() && o2n.Won() {
		return merged, ErrInvalidResult("both opponents cannot win match")
	}
	if o1n.Won() && o2n.HasResult() && *o2n.Result != models.ResultLoss {
		return merged, ErrInvalidResult("opponent 2 result contradicts opponent 1's win")
	}
	if o2n.Won() && o1n.HasResult() && *o1n.Result != models.ResultLoss {
		return merged, ErrInvalidResult("opponent 1 result contradicts opponent 2's win")
	}
	if o1n.Won() && o2n.IsParticipant() && o2n.Score != nil && o1n.Score != nil && *o2n.Score > *o1n.Score && !o2n.Forfeit {
		return merged, ErrInvalidResult("opponent 1 declared winner but trails on score")
	}
	if o2n.Won() && o1n.IsParticipant() && o1n.Score != nil && o2n.Score != nil && *o1n.Score > *o2n.Score && !o1n.Forfeit {
		return merged, ErrInvalidResult("opponent 2 declared winner but trails on score")
	}

	// Canonicalize: a declared winner implies the other side lost,
	// unless that side already carries an explicit forfeit (forfeit
	// dominates for progression per spec §4.4/§9).
	if o1n.Won() && !o2n.HasResult() {
		o2n = o2n.WithResult(models.ResultLoss, o2n.Forfeit)
	}
	if o2n.Won() && !o1n.HasResult() {
		o1n = o1n.WithResult(models.ResultLoss, o1n.Forfeit)
	}
	// A forfeit implies the other side wins even without a score.
	if o1n.Forfeit && !o2n.HasResult() {
		o2n = o2n.WithResult(models.ResultWin, false)
	}
	if o2n.Forfeit && !o1n.HasResult() {
		o1n = o1n.WithResult(models.ResultWin, false)
	}

	return [2]models.Opponent{o1n, o2n}, nil
}

// computeStatus derives a match's status from its opponents per the
// §3 invariants.
func computeStatus(o1, o2 models.Opponent, childCount int) models.MatchStatus {
	if o1.IsPosition() || o2.IsPosition() {
		return models.StatusLocked
	}
	if o1.Won() || o2.Won() {
		return models.StatusCompleted
	}
	if o1.IsEmpty() && o2.IsEmpty() {
		return models.StatusCompleted
	}
	if childCount > 0 {
		threshold := models.WinThreshold(childCount)
		if o1.ScoreValue() >= threshold || o2.ScoreValue() >= threshold {
			return models.StatusCompleted
		}
	}
	if (o1.IsParticipant() && o1.Score != nil) || (o2.IsParticipant() && o2.Score != nil) {
		return models.StatusRunning
	}
	if o1.IsParticipant() && o2.IsParticipant() {
		return models.StatusReady
	}
	return models.StatusReady
}

// winnerLoser extracts winner/loser participant ids from a completed
// match. Both sides come back as BYE for a double-BYE sentinel and for
// a best-of draw (spec §4.5: child_count even, neither side reaches
// the win threshold) -- in both cases no participant advances, so
// every successor slot the match feeds receives a BYE rather than a
// participant id. ok is only false when the match isn't actually
// decided, which never happens for a Completed match.
func winnerLoser(match models.Match) (winnerID int, winnerIsBye bool, loserID int, loserIsBye bool, ok bool) {
	if match.Status != models.StatusCompleted {
		return 0, false, 0, false, false
	}
	if match.Opponent1.IsEmpty() && match.Opponent2.IsEmpty() {
		return 0, true, 0, true, true
	}
	if match.Opponent1.IsEmpty() {
		return match.Opponent2.ParticipantID, false, 0, true, true
	}
	if match.Opponent2.IsEmpty() {
		return match.Opponent1.ParticipantID, false, 0, true, true
	}
	if match.Opponent1.Won() {
		return match.Opponent1.ParticipantID, false, match.Opponent2.ParticipantID, false, true
	}
	if match.Opponent2.Won() {
		return match.Opponent2.ParticipantID, false, match.Opponent1.ParticipantID, false, true
	}
	// A draw: neither side has an explicit win. Treat as a no-advance
	// result, consistent with the double-BYE sentinel above.
	return 0, true, 0, true, true
}

// guardDownstreamCompleted enforces spec §4.4's explicit contract:
// resetting a match whose successor is already Completed is refused
// rather than silently cascading.
func (m *Manager) guardDownstreamCompleted(ctx context.Context, stage models.Stage, match models.Match) error {
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
		if found && successor.Status == models.StatusCompleted {
			return ErrCannotResetDownstreamCompleted(match.ID)
		}
	}
	if isGrandFinalFirstLeg(shape, ref) {
		gf2, found, err := m.grandFinalSecondLeg(ctx, stage.ID)
		if err != nil {
			return err
		}
		if found && gf2.Status == models.StatusCompleted {
			return ErrCannotResetDownstreamCompleted(match.ID)
		}
	}
	return nil
}
