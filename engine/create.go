package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dosada05/bracketengine/bracket"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// CreateTournamentInput is the §6.3 create.tournament payload.
type CreateTournamentInput struct {
	Name string
}

// CreateTournament inserts a new tournament row.
func (m *Manager) CreateTournament(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	if in.Name == "" {
		return nil, ErrInvalidInput("tournament name is required")
	}
	ids, err := storage.Insert(ctx, m.store, storage.Tournaments, []models.Tournament{{Name: in.Name}})
	if err != nil {
		return nil, wrapStorage(err, "insert tournament")
	}
	return &models.Tournament{ID: ids[0], Name: in.Name}, nil
}

// CreateStageInput is the §6.1 create.stage payload.
type CreateStageInput struct {
	TournamentID   int
	Name           string
	Type           models.StageType
	ParticipantIDs []int
	Settings       models.StageSettings
}

// CreateStage implements §6.3 create.stage: it runs C1+C2 to produce
// the complete match graph, persists stage/group/round/match rows,
// wires placeholder sources into concrete successor ids, runs BYE
// auto-advance once (spec §4.4), and returns the created stage.
func (m *Manager) CreateStage(ctx context.Context, in CreateStageInput) (*models.Stage, error) {
	if in.Name == "" {
		return nil, ErrInvalidInput("stage name is required")
	}
	if len(in.ParticipantIDs) < 2 {
		return nil, ErrInvalidInput("at least 2 participants are required, got %d", len(in.ParticipantIDs))
	}
	if err := validateSettings(in.Type, in.Settings); err != nil {
		return nil, err
	}

	stage := &models.Stage{
		TournamentID: in.TournamentID,
		Name:         in.Name,
		Type:         in.Type,
		Settings:     in.Settings,
	}
	stageIDs, err := storage.Insert(ctx, m.store, storage.Stages, []models.Stage{*stage})
	if err != nil {
		return nil, wrapStorage(err, "insert stage")
	}
	stage.ID = stageIDs[0]

	gen, err := bracket.ForType(in.Type)
	if err != nil {
		return nil, ErrInvalidInput("%v", err)
	}
	generated, err := gen.Generate(bracket.GenerateParams{Stage: stage, ParticipantIDs: in.ParticipantIDs})
	if err != nil {
		return nil, ErrInvalidInput("%v", err)
	}

	if err := m.persistGeneratedMatches(ctx, stage, generated); err != nil {
		return nil, err
	}

	if stage.Type == models.StageRoundRobin && stage.Settings.DeferSeeding {
		if rrGen, ok := gen.(*bracket.RoundRobinGenerator); ok {
			order, err := rrGen.SeedOrder(bracket.GenerateParams{Stage: stage, ParticipantIDs: in.ParticipantIDs})
			if err != nil {
				return nil, ErrInvalidInput("%v", err)
			}
			if _, err := storage.Insert(ctx, m.store, storage.Seedings, []models.SeedList{{StageID: stage.ID, Order: order}}); err != nil {
				return nil, wrapStorage(err, "insert seed list for stage %d", stage.ID)
			}
		}
	}

	if err := m.runByeAutoAdvance(ctx, stage); err != nil {
		return nil, err
	}

	return stage, nil
}

func validateSettings(stageType models.StageType, s models.StageSettings) error {
	if s.ChildCountEven() && !s.AllowDrawBoEven {
		return ErrInvalidInput("matchesChildCount is even, which permits draws; set allowDrawBoEven to opt in (spec §4.5/§9)")
	}
	switch stageType {
	case models.StageRoundRobin:
		if s.GroupCount < 0 {
			return ErrInvalidInput("groupCount must be >= 1")
		}
	case models.StageSingleElimination, models.StageDoubleElimination:
		if s.Size != nil && *s.Size < 2 {
			return ErrInvalidInput("size must be >= 2")
		}
	default:
		return ErrInvalidInput("unknown stage type %q", stageType)
	}
	return nil
}

// persistGeneratedMatches inserts groups/rounds/matches for a freshly
// generated layout and rewrites each GeneratedMatch's placeholder
// Source references into the correct {position:k} semantics is not
// needed here: opponents that are NOT fed by another generated match
// (Source*Group == 0) are concrete already (participant or BYE) and
// inserted as-is. Opponents fed by another match stay as Placeholder
// values keyed by slot (1 or 2) -- resolution into a real participant
// id happens later, via the progression engine, when the feeding
// match completes. This function's only extra job is computing each
// match's initial status from the §3 invariants.
func (m *Manager) persistGeneratedMatches(ctx context.Context, stage *models.Stage, generated []bracket.GeneratedMatch) error {
	groupIDs := map[int]int{}
	roundIDs := map[string]int{} // "group:round" -> id

	for _, gm := range generated {
		if _, ok := groupIDs[gm.GroupNumber]; !ok {
			ids, err := storage.Insert(ctx, m.store, storage.Groups, []models.Group{{StageID: stage.ID, Number: gm.GroupNumber}})
			if err != nil {
				return wrapStorage(err, "insert group %d", gm.GroupNumber)
			}
			groupIDs[gm.GroupNumber] = ids[0]
		}
		key := fmt.Sprintf("%d:%d", gm.GroupNumber, gm.RoundNumber)
		if _, ok := roundIDs[key]; !ok {
			ids, err := storage.Insert(ctx, m.store, storage.Rounds, []models.Round{{
				StageID: stage.ID, GroupID: groupIDs[gm.GroupNumber], Number: gm.RoundNumber,
			}})
			if err != nil {
				return wrapStorage(err, "insert round %s", key)
			}
			roundIDs[key] = ids[0]
		}
	}

	for _, gm := range generated {
		status := gm.Status
		if status == 0 {
			status = deriveStatus(gm.Opponent1, gm.Opponent2, stage.Settings.MatchesChildCount)
		}
		key := fmt.Sprintf("%d:%d", gm.GroupNumber, gm.RoundNumber)
		match := models.Match{
			StageID:      stage.ID,
			GroupID:      groupIDs[gm.GroupNumber],
			RoundID:      roundIDs[key],
			Number:       gm.Number,
			Status:       status,
			Opponent1:    gm.Opponent1,
			Opponent2:    gm.Opponent2,
			ChildCount:   gm.ChildCount,
			ExternalUID:  uuid.NewString(),
			DisplayLabel: gm.UID,
		}
		if _, err := storage.Insert(ctx, m.store, storage.Matches, []models.Match{match}); err != nil {
			return wrapStorage(err, "insert match %s", gm.UID)
		}
	}

	return nil
}

// deriveStatus computes the initial status of a freshly generated
// match from the §3 invariants: Locked if either side is a pending
// placeholder, Ready if both sides are resolved participants/BYEs
// with no score yet, Completed if the match is a double-BYE sentinel.
func deriveStatus(o1, o2 models.Opponent, childCount int) models.MatchStatus {
	if o1.IsPosition() || o2.IsPosition() {
		return models.StatusLocked
	}
	if o1.IsEmpty() && o2.IsEmpty() {
		return models.StatusCompleted
	}
	return models.StatusReady
}
