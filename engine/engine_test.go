package engine

import (
	"context"
	"testing"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
	"github.com/Dosada05/bracketengine/storage/memory"
)

func newTestManager(t *testing.T) (*Manager, context.Context) {
	t.Helper()
	return New(memory.New()), context.Background()
}

func createParticipants(t *testing.T, ctx context.Context, m *Manager, tournamentID int, names ...string) []int {
	t.Helper()
	ids := make([]int, len(names))
	for i, name := range names {
		inserted, err := storage.Insert(ctx, m.store, storage.Participants, []models.Participant{{
			TournamentID: tournamentID, Name: name, InitialSeed: i + 1,
		}})
		if err != nil {
			t.Fatalf("insert participant %s: %v", name, err)
		}
		ids[i] = inserted[0]
	}
	return ids
}

func matchByNumber(t *testing.T, ctx context.Context, m *Manager, stageID int, groupNumber, roundNumber, number int) models.Match {
	t.Helper()
	groups, err := storage.Select[models.Group](ctx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stageID, "number": groupNumber}))
	if err != nil || len(groups) == 0 {
		t.Fatalf("group %d not found for stage %d: %v", groupNumber, stageID, err)
	}
	rounds, err := storage.Select[models.Round](ctx, m.store, storage.Rounds, storage.Match(map[string]any{"group_id": groups[0].ID, "number": roundNumber}))
	if err != nil || len(rounds) == 0 {
		t.Fatalf("round %d not found for group %d: %v", roundNumber, groups[0].ID, err)
	}
	matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"round_id": rounds[0].ID, "number": number}))
	if err != nil || len(matches) == 0 {
		t.Fatalf("match %d not found for round %d: %v", number, rounds[0].ID, err)
	}
	return matches[0]
}

// Scenario 1 (spec §8): 4-team single elim, natural ordering.
func TestScenarioSingleElimFourTeamsNatural(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "four team"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	// "natural" is identity (spec §4.1): pairing (slot 2k, slot 2k+1)
	// on the unpermuted seed list gives (A,B) and (C,D).
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	r1m2 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 2)
	if r1m1.Opponent1.ParticipantID != a || r1m1.Opponent2.ParticipantID != b {
		t.Fatalf("expected round1 match1 (A,B), got %+v", r1m1)
	}
	if r1m2.Opponent1.ParticipantID != c || r1m2.Opponent2.ParticipantID != d {
		t.Fatalf("expected round1 match2 (C,D), got %+v", r1m2)
	}

	win := models.ResultWin
	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{
		ID:        r1m1.ID,
		Opponent1: &OpponentPatch{ParticipantID: a, Result: &win},
	}); err != nil {
		t.Fatalf("update round1 match1: %v", err)
	}
	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{
		ID:        r1m2.ID,
		Opponent1: &OpponentPatch{ParticipantID: c, Result: &win},
	}); err != nil {
		t.Fatalf("update round1 match2: %v", err)
	}

	final := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1)
	if final.Status != models.StatusReady {
		t.Fatalf("expected final Ready, got %v", final.Status)
	}
	if final.Opponent1.ParticipantID != a || final.Opponent2.ParticipantID != c {
		t.Fatalf("expected final (A,C), got %+v", final)
	}
}

// Scenario 2 (spec §8): 3-team single elim triggers BYE auto-advance.
func TestScenarioSingleElimThreeTeamsByeAutoAdvance(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "three team"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	// Padding a 3-entrant seed list to the next power of two appends a
	// single BYE at the end: slots become (A,B),(C,BYE).
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C")
	c := ids[2]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	if r1m1.Status != models.StatusReady {
		t.Fatalf("expected (A,B) match Ready, got %v", r1m1.Status)
	}

	r1m2 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 2)
	if r1m2.Status != models.StatusCompleted {
		t.Fatalf("expected (C,BYE) match Completed immediately, got %v", r1m2.Status)
	}
	if r1m2.Opponent1.ParticipantID != c || !r1m2.Opponent1.Won() {
		t.Fatalf("expected C recorded as winner of the BYE match, got %+v", r1m2.Opponent1)
	}

	final := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1)
	if final.Status != models.StatusLocked && final.Status != models.StatusWaiting {
		t.Fatalf("expected final Locked/Waiting on (A,B)'s winner, got %v", final.Status)
	}
	if final.Opponent2.ParticipantID != c {
		t.Fatalf("expected final opponent2 already resolved to C, got %+v", final.Opponent2)
	}
	if !final.Opponent1.IsPosition() {
		t.Fatalf("expected final opponent1 still a placeholder waiting on (A,B), got %+v", final.Opponent1)
	}
}

// Scenario 3 (spec §8): 4-team double elim with a double grand final.
func TestScenarioDoubleElimDoubleGrandFinal(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "de4"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a, b, c := ids[0], ids[1], ids[2]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "de", Type: models.StageDoubleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural", GrandFinal: models.GrandFinalDouble},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	win := models.ResultWin
	complete := func(matchID int, winnerID int) models.Match {
		t.Helper()
		match, err := m.FindMatch(ctx, matchID)
		if err != nil {
			t.Fatalf("FindMatch %d: %v", matchID, err)
		}
		var patch1, patch2 *OpponentPatch
		if match.Opponent1.ParticipantID == winnerID {
			patch1 = &OpponentPatch{ParticipantID: winnerID, Result: &win}
		} else {
			patch2 = &OpponentPatch{ParticipantID: winnerID, Result: &win}
		}
		got, err := m.UpdateMatch(ctx, UpdateMatchInput{ID: matchID, Opponent1: patch1, Opponent2: patch2})
		if err != nil {
			t.Fatalf("UpdateMatch %d: %v", matchID, err)
		}
		return *got
	}

	// WB round 1: (A,B) and (C,D) under natural ordering.
	wbR1M1 := matchByNumber(t, ctx, m, stage.ID, models.GroupWinners, 1, 1)
	wbR1M2 := matchByNumber(t, ctx, m, stage.ID, models.GroupWinners, 1, 2)
	complete(wbR1M1.ID, a)
	complete(wbR1M2.ID, c)

	// WB final: A vs C, A wins -- C drops to the LB final.
	wbFinal := matchByNumber(t, ctx, m, stage.ID, models.GroupWinners, 2, 1)
	complete(wbFinal.ID, a)

	// LB round 1: B (lost to A) vs D (lost to C).
	lbR1 := matchByNumber(t, ctx, m, stage.ID, models.GroupLosers, 1, 1)
	complete(lbR1.ID, b)

	// LB round 2 (LB final): B vs the WB final's loser, C.
	lbR2 := matchByNumber(t, ctx, m, stage.ID, models.GroupLosers, 2, 1)
	complete(lbR2.ID, b)

	gf1 := matchByNumber(t, ctx, m, stage.ID, models.GroupGrandFinal, 1, 1)
	gf1Match, err := m.FindMatch(ctx, gf1.ID)
	if err != nil {
		t.Fatalf("FindMatch gf1: %v", err)
	}
	if gf1Match.Status != models.StatusReady {
		t.Fatalf("expected GF1 Ready with WB and LB winners seated, got %v (%+v vs %+v)", gf1Match.Status, gf1Match.Opponent1, gf1Match.Opponent2)
	}

	// LB winner (B) beats WB winner (A) in GF1: a second grand final is required.
	complete(gf1.ID, b)

	gf2 := matchByNumber(t, ctx, m, stage.ID, models.GroupGrandFinal, 2, 1)
	gf2Match, err := m.FindMatch(ctx, gf2.ID)
	if err != nil {
		t.Fatalf("FindMatch gf2: %v", err)
	}
	if gf2Match.Status == models.StatusArchived {
		t.Fatalf("expected GF2 unarchived after LB winner took GF1")
	}

	complete(gf2.ID, a)

	standings, err := m.GetFinalStandings(ctx, stage.ID)
	if err != nil {
		t.Fatalf("GetFinalStandings: %v", err)
	}
	if len(standings) == 0 || standings[0].ParticipantID != a || standings[0].Rank != 1 {
		t.Fatalf("expected A champion, got %+v", standings)
	}
}

// Scenario 4 (spec §8): 6-team round robin in 2 groups, simple.
func TestScenarioRoundRobinSixInTwoGroups(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "rr6"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D", "E", "F")

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "rr", Type: models.StageRoundRobin,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{GroupCount: 2, RoundRobinMode: models.RoundRobinSimple},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	data, err := m.GetStageData(ctx, stage.ID)
	if err != nil {
		t.Fatalf("GetStageData: %v", err)
	}
	if len(data.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(data.Groups))
	}
	perGroup := map[int]int{}
	for _, match := range data.Matches {
		perGroup[match.GroupID]++
	}
	for groupID, count := range perGroup {
		if count != 3 {
			t.Fatalf("group %d: expected 3 matches for a 3-team round robin, got %d", groupID, count)
		}
	}
}

// Scenario 5 (spec §8): Bo3 aggregation.
func TestScenarioBestOfThreeAggregation(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "bo3"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a := ids[0]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bo3 bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural", MatchesChildCount: 3},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	games, err := m.GetMatchGames(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("GetMatchGames: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("expected 3 child games, got %d", len(games))
	}

	win := models.ResultWin
	for i := 0; i < 2; i++ {
		g := games[i]
		if _, err := m.UpdateMatchGame(ctx, UpdateMatchGameInput{
			ID:        g.ID,
			Opponent1: &OpponentPatch{ParticipantID: g.Opponent1.ParticipantID, Result: &win},
		}); err != nil {
			t.Fatalf("UpdateMatchGame %d: %v", g.ID, err)
		}
	}

	parent, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if parent.Status != models.StatusCompleted {
		t.Fatalf("expected parent Completed after 2 of 3 games won, got %v", parent.Status)
	}
	if parent.Opponent1.ParticipantID != a || !parent.Opponent1.Won() {
		t.Fatalf("expected A to win the parent, got %+v", parent.Opponent1)
	}

	thirdGame, _, err := storage.SelectOne[models.MatchGame](ctx, m.store, storage.MatchGames, storage.ByID(games[2].ID))
	if err != nil {
		t.Fatalf("select third game: %v", err)
	}
	if thirdGame.Status != models.StatusArchived {
		t.Fatalf("expected unplayed third game Archived, got %v", thirdGame.Status)
	}
}

// Scenario 6 (spec §8): reset rejection once a successor has completed.
func TestScenarioResetRejectedWhenDownstreamCompleted(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "reset4"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a, c := ids[0], ids[2]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	win := models.ResultWin
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	r1m2 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 2)
	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}}); err != nil {
		t.Fatalf("complete r1m1: %v", err)
	}
	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m2.ID, Opponent1: &OpponentPatch{ParticipantID: c, Result: &win}}); err != nil {
		t.Fatalf("complete r1m2: %v", err)
	}
	final := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1)
	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{ID: final.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}}); err != nil {
		t.Fatalf("complete final: %v", err)
	}

	beforeReset, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch before reset: %v", err)
	}

	_, err = m.ResetMatchResults(ctx, r1m1.ID)
	assertKind(t, err, KindCannotResetDownstreamCompleted)

	afterAttempt, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch after failed reset: %v", err)
	}
	if afterAttempt.Status != beforeReset.Status || afterAttempt.Opponent1 != beforeReset.Opponent1 {
		t.Fatalf("expected no mutation from the rejected reset: before=%+v after=%+v", beforeReset, afterAttempt)
	}
}

// Idempotence (spec §8): applying the same update.match twice yields
// the same state as applying it once.
func TestUpdateMatchIdempotent(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "idem"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a := ids[0]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	win := models.ResultWin
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	input := UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}}

	first, err := m.UpdateMatch(ctx, input)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	final := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1)
	afterFirst := final
	second, err := m.UpdateMatch(ctx, input)
	if err != nil {
		t.Fatalf("second (repeated) update: %v", err)
	}
	if first.Status != second.Status || first.Opponent1 != second.Opponent1 || first.Opponent2 != second.Opponent2 {
		t.Fatalf("expected idempotent result, got first=%+v second=%+v", first, second)
	}

	afterSecond, err := m.FindMatch(ctx, final.ID)
	if err != nil {
		t.Fatalf("FindMatch final after second update: %v", err)
	}
	if afterFirst.Opponent1 != afterSecond.Opponent1 {
		t.Fatalf("expected successor unaffected by the repeated update: %+v vs %+v", afterFirst, afterSecond)
	}
}

// Reset inverse (spec §8): reset then re-apply returns the graph to
// its pre-reset state.
func TestResetThenReapplyRestoresState(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "reset-inverse"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a := ids[0]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	win := models.ResultWin
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	input := UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}}

	if _, err := m.UpdateMatch(ctx, input); err != nil {
		t.Fatalf("update: %v", err)
	}
	beforeReset, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch before reset: %v", err)
	}
	finalBefore, err := m.FindMatch(ctx, matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1).ID)
	if err != nil {
		t.Fatalf("FindMatch final before reset: %v", err)
	}

	if _, err := m.ResetMatchResults(ctx, r1m1.ID); err != nil {
		t.Fatalf("ResetMatchResults: %v", err)
	}
	if _, err := m.UpdateMatch(ctx, input); err != nil {
		t.Fatalf("re-apply update: %v", err)
	}

	afterReapply, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch after reapply: %v", err)
	}
	finalAfter, err := m.FindMatch(ctx, matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 2, 1).ID)
	if err != nil {
		t.Fatalf("FindMatch final after reapply: %v", err)
	}

	if beforeReset.Status != afterReapply.Status || beforeReset.Opponent1 != afterReapply.Opponent1 || beforeReset.Opponent2 != afterReapply.Opponent2 {
		t.Fatalf("expected reset+reapply to restore match state: before=%+v after=%+v", beforeReset, afterReapply)
	}
	if finalBefore.Opponent1 != finalAfter.Opponent1 {
		t.Fatalf("expected reset+reapply to restore successor state: before=%+v after=%+v", finalBefore, finalAfter)
	}
}

// BYE law (spec §8): no match is ever Completed with a BYE winner.
func TestByeNeverWinsAMatch(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "bye-law"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D", "E")

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	data, err := m.GetStageData(ctx, stage.ID)
	if err != nil {
		t.Fatalf("GetStageData: %v", err)
	}
	for _, match := range data.Matches {
		if match.Status != models.StatusCompleted {
			continue
		}
		// A BYE never carries a result itself, so a BYE "winning" would
		// show up as a completed one-BYE match whose participant is not
		// marked as the winner.
		if match.Opponent1.IsEmpty() && match.Opponent2.IsParticipant() && !match.Opponent2.Won() {
			t.Fatalf("match %d completed against a BYE as opponent1 without opponent2 winning: %+v", match.ID, match)
		}
		if match.Opponent2.IsEmpty() && match.Opponent1.IsParticipant() && !match.Opponent1.Won() {
			t.Fatalf("match %d completed against a BYE as opponent2 without opponent1 winning: %+v", match.ID, match)
		}
	}
}

// Validation errors (spec §4.4/§7): negative score, contradictory
// result, archived match, and use-match-game-update all surface the
// correct Kind without mutating storage.
func TestUpdateMatchValidationErrors(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "validation"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a, b := ids[0], ids[1]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)

	negScore := -1
	_, err = m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Score: &negScore}})
	assertKind(t, err, KindInvalidScore)

	win := models.ResultWin
	_, err = m.UpdateMatch(ctx, UpdateMatchInput{
		ID:        r1m1.ID,
		Opponent1: &OpponentPatch{ParticipantID: a, Result: &win},
		Opponent2: &OpponentPatch{ParticipantID: b, Result: &win},
	})
	assertKind(t, err, KindInvalidResult)

	_, err = m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: 99999, Result: &win}})
	assertKind(t, err, KindInvalidOpponent)

	if _, err := m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}}); err != nil {
		t.Fatalf("complete r1m1: %v", err)
	}
	archived, err := m.FindMatch(ctx, r1m1.ID)
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	archived.Status = models.StatusArchived
	if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(archived.ID), archived); err != nil {
		t.Fatalf("force-archive for test: %v", err)
	}
	_, err = m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Result: &win}})
	assertKind(t, err, KindInvalidTransition)
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", want)
	}
	engErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *engine.Error, got %T (%v)", err, err)
	}
	if engErr.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, engErr.Kind, err)
	}
}

// UseMatchGameUpdate (spec §4.5): a best-of parent's score can't be
// set directly once it has child games.
func TestBestOfParentRejectsDirectScoreUpdate(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "bo-guard"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")
	a := ids[0]

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural", MatchesChildCount: 3},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}
	r1m1 := matchByNumber(t, ctx, m, stage.ID, models.GroupMain, 1, 1)
	score := 1
	_, err = m.UpdateMatch(ctx, UpdateMatchInput{ID: r1m1.ID, Opponent1: &OpponentPatch{ParticipantID: a, Score: &score}})
	assertKind(t, err, KindUseMatchGameUpdate)
}

// create.stage rejects an even matchesChildCount unless the caller
// opts into draws (spec §4.5/§9 open question resolution).
func TestCreateStageRejectsEvenChildCountWithoutOptIn(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "bo-even"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")

	_, err = m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural", MatchesChildCount: 2},
	})
	assertKind(t, err, KindInvalidInput)

	_, err = m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket2", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural", MatchesChildCount: 2, AllowDrawBoEven: true},
	})
	if err != nil {
		t.Fatalf("expected opt-in to succeed: %v", err)
	}
}

// Seeding confirmation round trip (spec §4.4) for a deferred
// round-robin stage.
func TestConfirmSeedingResolvesPlaceholders(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "defer-seed"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "rr", Type: models.StageRoundRobin,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{GroupCount: 1, SeedOrdering: "natural", DeferSeeding: true},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	data, err := m.GetStageData(ctx, stage.ID)
	if err != nil {
		t.Fatalf("GetStageData: %v", err)
	}
	var sawPlaceholder bool
	for _, match := range data.Matches {
		if match.Opponent1.IsPosition() || match.Opponent2.IsPosition() {
			sawPlaceholder = true
		}
	}
	if !sawPlaceholder {
		t.Fatal("expected deferred round-robin stage to generate placeholder opponents")
	}

	if err := m.ConfirmSeeding(ctx, stage.ID); err != nil {
		t.Fatalf("ConfirmSeeding: %v", err)
	}

	data, err = m.GetStageData(ctx, stage.ID)
	if err != nil {
		t.Fatalf("GetStageData after confirm: %v", err)
	}
	for _, match := range data.Matches {
		if match.Opponent1.IsPosition() || match.Opponent2.IsPosition() {
			t.Fatalf("match %d still has an unresolved placeholder after confirmSeeding: %+v", match.ID, match)
		}
	}
}

// delete.stage cascades groups/rounds/matches/match_games but leaves
// participants untouched (spec §3 Lifecycle).
func TestDeleteStageCascadesButKeepsParticipants(t *testing.T) {
	m, ctx := newTestManager(t)
	tour, err := m.CreateTournament(ctx, CreateTournamentInput{Name: "cascade"})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	ids := createParticipants(t, ctx, m, tour.ID, "A", "B", "C", "D")

	stage, err := m.CreateStage(ctx, CreateStageInput{
		TournamentID: tour.ID, Name: "bracket", Type: models.StageSingleElimination,
		ParticipantIDs: ids,
		Settings:       models.StageSettings{SeedOrdering: "natural"},
	})
	if err != nil {
		t.Fatalf("CreateStage: %v", err)
	}

	if err := m.DeleteStage(ctx, stage.ID); err != nil {
		t.Fatalf("DeleteStage: %v", err)
	}

	data, err := m.GetStageData(ctx, stage.ID)
	if err == nil {
		t.Fatalf("expected NotFound for deleted stage, got data: %+v", data)
	}
	assertKind(t, err, KindNotFound)

	participants, err := storage.Select[models.Participant](ctx, m.store, storage.Participants, storage.Match(map[string]any{"tournament_id": tour.ID}))
	if err != nil {
		t.Fatalf("select participants: %v", err)
	}
	if len(participants) != len(ids) {
		t.Fatalf("expected participants to survive stage deletion, got %d want %d", len(participants), len(ids))
	}
}
