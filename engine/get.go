package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// StageData is the §6.3 get.stageData response: a stage plus every
// group/round/match/match-game belonging to it, fetched concurrently
// the way the teacher's GetFullTournamentData fans independent
// repository reads out behind an errgroup.
type StageData struct {
	Stage      models.Stage
	Groups     []models.Group
	Rounds     []models.Round
	Matches    []models.Match
	MatchGames []models.MatchGame
}

// GetStageData implements §6.3 get.stageData.
func (m *Manager) GetStageData(ctx context.Context, stageID int) (*StageData, error) {
	stage, found, err := storage.SelectOne[models.Stage](ctx, m.store, storage.Stages, storage.ByID(stageID))
	if err != nil {
		return nil, wrapStorage(err, "select stage %d", stageID)
	}
	if !found {
		return nil, ErrNotFound("stage", stageID)
	}

	data := &StageData{Stage: stage}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		groups, err := storage.Select[models.Group](gCtx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select groups for stage %d", stageID)
		}
		data.Groups = groups
		return nil
	})
	g.Go(func() error {
		rounds, err := storage.Select[models.Round](gCtx, m.store, storage.Rounds, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select rounds for stage %d", stageID)
		}
		data.Rounds = rounds
		return nil
	})
	var matches []models.Match
	g.Go(func() error {
		ms, err := storage.Select[models.Match](gCtx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select matches for stage %d", stageID)
		}
		matches = ms
		data.Matches = ms
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Match games key off parent match id, which is only known once the
	// matches fan-out above has completed, so this fetch cannot join the
	// first errgroup.
	var parentIDs []int
	for _, match := range matches {
		parentIDs = append(parentIDs, match.ID)
	}
	games, err := m.matchGamesForParents(ctx, parentIDs)
	if err != nil {
		return nil, err
	}
	data.MatchGames = games
	return data, nil
}

func (m *Manager) matchGamesForParents(ctx context.Context, parentIDs []int) ([]models.MatchGame, error) {
	var out []models.MatchGame
	for _, id := range parentIDs {
		games, err := storage.Select[models.MatchGame](ctx, m.store, storage.MatchGames, storage.Match(map[string]any{"parent_id": id}))
		if err != nil {
			return nil, wrapStorage(err, "select match games for parent %d", id)
		}
		out = append(out, games...)
	}
	return out, nil
}

// TournamentData is the §6.3 get.tournamentData response: a tournament,
// its participants, and every stage's StageData.
type TournamentData struct {
	Tournament   models.Tournament
	Participants []models.Participant
	Stages       []StageData
}

// GetTournamentData implements §6.3 get.tournamentData, fanning stage
// assembly out across an errgroup the same way GetStageData fans out
// its own table reads.
func (m *Manager) GetTournamentData(ctx context.Context, tournamentID int) (*TournamentData, error) {
	tournament, found, err := storage.SelectOne[models.Tournament](ctx, m.store, storage.Tournaments, storage.ByID(tournamentID))
	if err != nil {
		return nil, wrapStorage(err, "select tournament %d", tournamentID)
	}
	if !found {
		return nil, ErrNotFound("tournament", tournamentID)
	}

	data := &TournamentData{Tournament: tournament}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := storage.Select[models.Participant](gCtx, m.store, storage.Participants, storage.Match(map[string]any{"tournament_id": tournamentID}))
		if err != nil {
			return wrapStorage(err, "select participants for tournament %d", tournamentID)
		}
		data.Participants = participants
		return nil
	})

	var stages []models.Stage
	g.Go(func() error {
		ss, err := storage.Select[models.Stage](gCtx, m.store, storage.Stages, storage.Match(map[string]any{"tournament_id": tournamentID}))
		if err != nil {
			return wrapStorage(err, "select stages for tournament %d", tournamentID)
		}
		stages = ss
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sg, sCtx := errgroup.WithContext(ctx)
	stageData := make([]StageData, len(stages))
	for i, stage := range stages {
		i, stage := i, stage
		sg.Go(func() error {
			sd, err := m.GetStageData(sCtx, stage.ID)
			if err != nil {
				return err
			}
			stageData[i] = *sd
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, err
	}
	data.Stages = stageData
	return data, nil
}

// GetMatchGames implements §6.3 get.matchGames: every child game of a
// parent match, in play order.
func (m *Manager) GetMatchGames(ctx context.Context, matchID int) ([]models.MatchGame, error) {
	games, err := storage.Select[models.MatchGame](ctx, m.store, storage.MatchGames, storage.Match(map[string]any{"parent_id": matchID}))
	if err != nil {
		return nil, wrapStorage(err, "select match games for parent %d", matchID)
	}
	return games, nil
}

// CurrentRace is the §6.3 get.currentRace response: the live
// opponent1/opponent2 score tally of a best-of parent match, derived
// from its completed child games without waiting for the aggregator
// to finalize a result.
type CurrentRace struct {
	MatchID int
	Score1  int
	Score2  int
	Target  int
}

// GetCurrentRace implements §6.3 get.currentRace.
func (m *Manager) GetCurrentRace(ctx context.Context, matchID int) (*CurrentRace, error) {
	match, found, err := storage.SelectOne[models.Match](ctx, m.store, storage.Matches, storage.ByID(matchID))
	if err != nil {
		return nil, wrapStorage(err, "select match %d", matchID)
	}
	if !found {
		return nil, ErrNotFound("match", matchID)
	}
	if match.ChildCount <= 0 {
		return nil, ErrInvalidInput("match %d is not a best-of series", matchID)
	}
	games, err := m.GetMatchGames(ctx, matchID)
	if err != nil {
		return nil, err
	}
	wins1, wins2 := countGameWins(games)
	return &CurrentRace{
		MatchID: matchID,
		Score1:  wins1,
		Score2:  wins2,
		Target:  models.WinThreshold(match.ChildCount),
	}, nil
}
