// C6: standings. Ranking rules are stage-type specific (spec §4.6);
// this file dispatches GetFinalStandings to one of three pure
// computations over the stage's already-persisted match state.
package engine

import (
	"context"
	"sort"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// GetFinalStandings implements §6.3 get.finalStandings.
func (m *Manager) GetFinalStandings(ctx context.Context, stageID int) ([]models.Standing, error) {
	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(stageID))
	if err != nil {
		return nil, wrapStorage(err, "select stage %d", stageID)
	}
	if !found {
		return nil, ErrNotFound("stage", stageID)
	}

	groups, err := storage.Select[models.Group](ctx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stageID}))
	if err != nil {
		return nil, wrapStorage(err, "select groups for stage %d", stageID)
	}
	rounds, err := storage.Select[models.Round](ctx, m.store, storage.Rounds, storage.Match(map[string]any{"stage_id": stageID}))
	if err != nil {
		return nil, wrapStorage(err, "select rounds for stage %d", stageID)
	}
	matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID}))
	if err != nil {
		return nil, wrapStorage(err, "select matches for stage %d", stageID)
	}

	roundNumberOf := map[int]int{}
	for _, r := range rounds {
		roundNumberOf[r.ID] = r.Number
	}
	groupNumberOf := map[int]int{}
	for _, g := range groups {
		groupNumberOf[g.ID] = g.Number
	}

	switch stage.Type {
	case models.StageSingleElimination:
		return singleEliminationStandings(stageID, matches, roundNumberOf, groupNumberOf, stage.Settings.ConsolationFinal), nil
	case models.StageDoubleElimination:
		return doubleEliminationStandings(stageID, matches, roundNumberOf, groupNumberOf, stage.Settings.GrandFinal), nil
	case models.StageRoundRobin:
		participants, err := storage.Select[models.Participant](ctx, m.store, storage.Participants, storage.Match(map[string]any{"tournament_id": stage.TournamentID}))
		if err != nil {
			return nil, wrapStorage(err, "select participants for tournament %d", stage.TournamentID)
		}
		return roundRobinStandings(stageID, matches, groupNumberOf, participants), nil
	default:
		return nil, ErrInvalidInput("unknown stage type %q", stage.Type)
	}
}

// singleEliminationStandings ranks by round of elimination: the
// champion is rank 1, the final's loser rank 2, and every earlier
// round's losers share a tied rank equal to (bracketSize >>
// roundNumber) + 1 -- the standard seeded bracket placement numbering.
// When a consolation final was played, its winner/loser take ranks 3
// and 4 in place of the generic semifinal-loser tie.
func singleEliminationStandings(stageID int, matches []models.Match, roundNumberOf, groupNumberOf map[int]int, consolationFinal bool) []models.Standing {
	mainByRound := map[int][]models.Match{}
	maxRound := 0
	for _, match := range matches {
		if groupNumberOf[match.GroupID] != models.GroupMain {
			continue
		}
		rn := roundNumberOf[match.RoundID]
		mainByRound[rn] = append(mainByRound[rn], match)
		if rn > maxRound {
			maxRound = rn
		}
	}
	if maxRound == 0 {
		return nil
	}
	round1Count := len(mainByRound[1])
	bracketSize := round1Count * 2

	out := []models.Standing{}
	assigned := map[int]bool{}
	add := func(participantID, rank int) {
		if participantID == 0 || assigned[participantID] {
			return
		}
		assigned[participantID] = true
		out = append(out, models.Standing{StageID: stageID, ParticipantID: participantID, Rank: rank})
	}

	final := firstMatchInRound(mainByRound[maxRound], 1)
	if final != nil && final.Status == models.StatusCompleted {
		winnerID, winnerBye, loserID, loserBye, _ := winnerLoser(*final)
		if !winnerBye {
			add(winnerID, 1)
		}
		if !loserBye {
			add(loserID, 2)
		}
	}

	if consolationFinal {
		var consolation *models.Match
		for i, match := range matches {
			if groupNumberOf[match.GroupID] == models.GroupConsolation {
				consolation = &matches[i]
				break
			}
		}
		if consolation != nil && consolation.Status == models.StatusCompleted {
			winnerID, winnerBye, loserID, loserBye, _ := winnerLoser(*consolation)
			if !winnerBye {
				add(winnerID, 3)
			}
			if !loserBye {
				add(loserID, 4)
			}
		}
	}

	for r := maxRound; r >= 1; r-- {
		rank := (bracketSize >> uint(r)) + 1
		for _, match := range mainByRound[r] {
			if match.Status != models.StatusCompleted {
				continue
			}
			_, _, loserID, loserBye, _ := winnerLoser(match)
			if !loserBye {
				add(loserID, rank)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func firstMatchInRound(matches []models.Match, number int) *models.Match {
	for i, match := range matches {
		if match.Number == number {
			return &matches[i]
		}
	}
	return nil
}

// doubleEliminationStandings ranks the grand-final winner 1st, its
// loser 2nd, and loser-bracket eliminees by LB round descending (later
// LB round = better placement), breaking within-round ties by match
// number ascending for a deterministic order (spec §4.6's WB-round tie
// break is, by construction of the major/minor LB round pattern,
// already encoded in which LB round a participant was eliminated in).
func doubleEliminationStandings(stageID int, matches []models.Match, roundNumberOf, groupNumberOf map[int]int, grandFinal models.GrandFinalMode) []models.Standing {
	var gfMatches []models.Match
	lbByRound := map[int][]models.Match{}
	maxLBRound := 0
	var wbFinal *models.Match
	maxWBRound := 0

	gfRoundOf := map[int]int{}
	for i, match := range matches {
		switch groupNumberOf[match.GroupID] {
		case models.GroupGrandFinal:
			gfMatches = append(gfMatches, match)
			gfRoundOf[match.ID] = roundNumberOf[match.RoundID]
		case models.GroupLosers:
			rn := roundNumberOf[match.RoundID]
			lbByRound[rn] = append(lbByRound[rn], match)
			if rn > maxLBRound {
				maxLBRound = rn
			}
		case models.GroupWinners:
			rn := roundNumberOf[match.RoundID]
			if rn > maxWBRound {
				maxWBRound = rn
				wbFinal = &matches[i]
			}
		}
	}

	out := []models.Standing{}
	assigned := map[int]bool{}
	add := func(participantID, rank int) {
		if participantID == 0 || assigned[participantID] {
			return
		}
		assigned[participantID] = true
		out = append(out, models.Standing{StageID: stageID, ParticipantID: participantID, Rank: rank})
	}

	decisive := latestDecisiveGrandFinal(gfMatches, gfRoundOf, grandFinal)
	switch {
	case decisive != nil:
		winnerID, winnerBye, loserID, loserBye, _ := winnerLoser(*decisive)
		if !winnerBye {
			add(winnerID, 1)
		}
		if !loserBye {
			add(loserID, 2)
		}
	case wbFinal != nil && wbFinal.Status == models.StatusCompleted:
		// grandFinal: 'none' -- the WB winner is champion outright.
		winnerID, winnerBye, _, _, _ := winnerLoser(*wbFinal)
		if !winnerBye {
			add(winnerID, 1)
		}
	}

	for r := maxLBRound; r >= 1; r-- {
		rank := maxLBRound - r + 3
		byNumber := append([]models.Match{}, lbByRound[r]...)
		sort.Slice(byNumber, func(i, j int) bool { return byNumber[i].Number < byNumber[j].Number })
		for _, match := range byNumber {
			if match.Status != models.StatusCompleted {
				continue
			}
			_, _, loserID, loserBye, _ := winnerLoser(match)
			if !loserBye {
				add(loserID, rank)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// latestDecisiveGrandFinal picks the grand-final match that actually
// decided the championship: GF2 if grandFinal is 'double' and it was
// played (not left Archived as the BYE-completed sentinel), otherwise
// GF1.
func latestDecisiveGrandFinal(gfMatches []models.Match, gfRoundOf map[int]int, grandFinal models.GrandFinalMode) *models.Match {
	var gf1, gf2 *models.Match
	for i := range gfMatches {
		switch gfRoundOf[gfMatches[i].ID] {
		case 1:
			gf1 = &gfMatches[i]
		case 2:
			gf2 = &gfMatches[i]
		}
	}
	if grandFinal == models.GrandFinalDouble && gf2 != nil && gf2.Status == models.StatusCompleted {
		return gf2
	}
	if gf1 != nil && gf1.Status == models.StatusCompleted {
		return gf1
	}
	return nil
}

// roundRobinStandings ranks each group independently by (wins desc,
// draws desc, losses asc), breaking ties by head-to-head result when
// it uniquely separates two participants, then by score difference,
// then by seed order (spec §4.6).
func roundRobinStandings(stageID int, matches []models.Match, groupNumberOf map[int]int, participants []models.Participant) []models.Standing {
	byGroup := map[int][]models.Match{}
	for _, match := range matches {
		gn := groupNumberOf[match.GroupID]
		byGroup[gn] = append(byGroup[gn], match)
	}

	seedOf := map[int]int{}
	for _, p := range participants {
		seedOf[p.ID] = p.InitialSeed
	}

	var groupNumbers []int
	for gn := range byGroup {
		groupNumbers = append(groupNumbers, gn)
	}
	sort.Ints(groupNumbers)

	var out []models.Standing
	for _, gn := range groupNumbers {
		out = append(out, rankRoundRobinGroup(stageID, gn, byGroup[gn], seedOf)...)
	}
	return out
}

func rankRoundRobinGroup(stageID, groupNumber int, matches []models.Match, seedOf map[int]int) []models.Standing {
	type record struct {
		wins, draws, losses   int
		scoreFor, scoreAgainst int
	}
	records := map[int]*record{}
	headToHead := map[[2]int]int{} // (winner, loser) -> 1

	ensure := func(id int) *record {
		if records[id] == nil {
			records[id] = &record{}
		}
		return records[id]
	}

	for _, match := range matches {
		if match.Status != models.StatusCompleted {
			continue
		}
		if !match.Opponent1.IsParticipant() || !match.Opponent2.IsParticipant() {
			continue
		}
		id1, id2 := match.Opponent1.ParticipantID, match.Opponent2.ParticipantID
		r1, r2 := ensure(id1), ensure(id2)
		r1.scoreFor += match.Opponent1.ScoreValue()
		r1.scoreAgainst += match.Opponent2.ScoreValue()
		r2.scoreFor += match.Opponent2.ScoreValue()
		r2.scoreAgainst += match.Opponent1.ScoreValue()

		switch {
		case match.Opponent1.Won():
			r1.wins++
			r2.losses++
			headToHead[[2]int{id1, id2}] = 1
		case match.Opponent2.Won():
			r2.wins++
			r1.losses++
			headToHead[[2]int{id2, id1}] = 1
		default:
			r1.draws++
			r2.draws++
		}
	}

	var ids []int
	for id := range records {
		ids = append(ids, id)
	}

	beats := func(a, b int) bool { return headToHead[[2]int{a, b}] == 1 }

	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		ra, rb := records[a], records[b]
		if ra.wins != rb.wins {
			return ra.wins > rb.wins
		}
		if ra.draws != rb.draws {
			return ra.draws > rb.draws
		}
		if ra.losses != rb.losses {
			return ra.losses < rb.losses
		}
		if beats(a, b) {
			return true
		}
		if beats(b, a) {
			return false
		}
		diffA, diffB := ra.scoreFor-ra.scoreAgainst, rb.scoreFor-rb.scoreAgainst
		if diffA != diffB {
			return diffA > diffB
		}
		return seedOf[a] < seedOf[b]
	})

	out := make([]models.Standing, 0, len(ids))
	for rank, id := range ids {
		r := records[id]
		out = append(out, models.Standing{
			StageID:         stageID,
			GroupNumber:     groupNumber,
			ParticipantID:   id,
			Rank:            rank + 1,
			Wins:            r.wins,
			Draws:           r.draws,
			Losses:          r.losses,
			ScoreFor:        r.scoreFor,
			ScoreAgainst:    r.scoreAgainst,
			ScoreDifference: r.scoreFor - r.scoreAgainst,
		})
	}
	return out
}
