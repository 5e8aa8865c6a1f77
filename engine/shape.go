package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/graph"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// stageShape derives the graph.Shape C3 needs for a persisted stage by
// reading back the round counts actually generated, rather than
// recomputing log2(participants) -- this stays correct even when
// settings.size padded the bracket beyond the raw participant count.
func (m *Manager) stageShape(ctx context.Context, stage models.Stage) (graph.Shape, error) {
	shape := graph.Shape{
		Type:             stage.Type,
		ConsolationFinal: stage.Settings.ConsolationFinal,
		GrandFinal:       stage.Settings.GrandFinal,
	}
	if stage.Type == models.StageRoundRobin {
		return shape, nil
	}

	groups, err := storage.Select[models.Group](ctx, m.store, storage.Groups, storage.Match(map[string]any{"stage_id": stage.ID}))
	if err != nil {
		return shape, wrapStorage(err, "select groups for stage %d", stage.ID)
	}
	var wbGroupID int
	for _, g := range groups {
		if g.Number == models.GroupWinners {
			wbGroupID = g.ID
		}
	}
	if wbGroupID == 0 {
		return shape, ErrNotFound("winner bracket group", stage.ID)
	}

	rounds, err := storage.Select[models.Round](ctx, m.store, storage.Rounds, storage.Match(map[string]any{"group_id": wbGroupID}))
	if err != nil {
		return shape, wrapStorage(err, "select rounds for group %d", wbGroupID)
	}
	for _, r := range rounds {
		if r.Number > shape.WBRounds {
			shape.WBRounds = r.Number
		}
	}
	return shape, nil
}
