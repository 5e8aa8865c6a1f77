package engine

import (
	"context"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/storage"
)

// GetSeeding implements §6.3 get.seeding: the stage's stored
// position->participant mapping, in position order.
func (m *Manager) GetSeeding(ctx context.Context, stageID int) ([]int, error) {
	list, found, err := storage.SelectOne[models.SeedList](ctx, m.store, storage.Seedings, storage.Match(map[string]any{"stage_id": stageID}))
	if err != nil {
		return nil, wrapStorage(err, "select seed list for stage %d", stageID)
	}
	if !found {
		return nil, ErrNotFound("seed list", stageID)
	}
	return list.Order, nil
}

// UpdateSeeding implements §6.3 update.seeding: overwrites the stored
// seed order. Only valid before confirmSeeding has resolved any
// placeholder (the engine does not attempt to re-map already-resolved
// matches).
func (m *Manager) UpdateSeeding(ctx context.Context, stageID int, order []int) error {
	return m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		_, found, err := storage.SelectOne[models.SeedList](ctx, m.store, storage.Seedings, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select seed list for stage %d", stageID)
		}
		if !found {
			_, err := storage.Insert(ctx, m.store, storage.Seedings, []models.SeedList{{StageID: stageID, Order: order}})
			if err != nil {
				return wrapStorage(err, "insert seed list for stage %d", stageID)
			}
			return nil
		}
		if _, err := storage.Update(ctx, m.store, storage.Seedings, storage.Match(map[string]any{"stage_id": stageID}), models.SeedList{StageID: stageID, Order: order}); err != nil {
			return wrapStorage(err, "update seed list for stage %d", stageID)
		}
		return nil
	})
}

// ConfirmSeeding implements §6.3 update.confirmSeeding: resolves every
// {position:k} placeholder opponent in the stage against the stored
// seed list and recomputes statuses (spec §4.4 "Seeding confirmation").
func (m *Manager) ConfirmSeeding(ctx context.Context, stageID int) error {
	return m.withStageLock(ctx, stageID, func(ctx context.Context) error {
		order, err := m.GetSeeding(ctx, stageID)
		if err != nil {
			return err
		}

		matches, err := storage.Select[models.Match](ctx, m.store, storage.Matches, storage.Match(map[string]any{"stage_id": stageID}))
		if err != nil {
			return wrapStorage(err, "select matches for stage %d", stageID)
		}

		for _, match := range matches {
			changed := false
			if match.Opponent1.IsPosition() {
				match.Opponent1 = resolvePlaceholder(match.Opponent1, order)
				changed = true
			}
			if match.Opponent2.IsPosition() {
				match.Opponent2 = resolvePlaceholder(match.Opponent2, order)
				changed = true
			}
			if !changed {
				continue
			}
			match.Status = computeStatus(match.Opponent1, match.Opponent2, match.ChildCount)
			if _, err := storage.Update(ctx, m.store, storage.Matches, storage.ByID(match.ID), match); err != nil {
				return wrapStorage(err, "update match %d", match.ID)
			}
		}
		return nil
	})
}

func resolvePlaceholder(o models.Opponent, order []int) models.Opponent {
	if o.Position < 1 || o.Position > len(order) {
		return o
	}
	id := order[o.Position-1]
	if id == 0 {
		return models.Bye()
	}
	return models.ParticipantOpponent(id)
}
