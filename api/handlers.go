package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/bracketengine/engine"
	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/snapshot"
	"github.com/Dosada05/bracketengine/ws"
)

// Handlers is the thin HTTP front door over the engine.Manager, the
// same role the teacher's handlers package plays over its services
// layer: translate requests into manager calls and manager results
// into JSON responses, no business logic of its own.
type Handlers struct {
	manager *engine.Manager
	auth    *Authenticator
	hub     *ws.Hub
	export  *snapshot.Exporter
	logger  *slog.Logger
}

func NewHandlers(manager *engine.Manager, auth *Authenticator, hub *ws.Hub, exporter *snapshot.Exporter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{manager: manager, auth: auth, hub: hub, export: exporter, logger: logger}
}

// --- auth ---

type loginInput struct {
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	token, err := h.auth.Login(in.Password)
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"token": token})
}

// --- create ---

type createTournamentInput struct {
	Name string `json:"name"`
}

func (h *Handlers) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var in createTournamentInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.manager.CreateTournament(r.Context(), engine.CreateTournamentInput{Name: in.Name})
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament})
}

type createStageInput struct {
	TournamentID   int                  `json:"tournament_id"`
	Name           string               `json:"name"`
	Type           models.StageType     `json:"type"`
	ParticipantIDs []int                `json:"participant_ids"`
	Settings       models.StageSettings `json:"settings"`
}

func (h *Handlers) CreateStage(w http.ResponseWriter, r *http.Request) {
	var in createStageInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	stage, err := h.manager.CreateStage(r.Context(), engine.CreateStageInput{
		TournamentID:   in.TournamentID,
		Name:           in.Name,
		Type:           in.Type,
		ParticipantIDs: in.ParticipantIDs,
		Settings:       in.Settings,
	})
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"stage": stage})
	h.broadcastStage(stage.ID, ws.EventStageCreated, nil)
}

// --- update ---

type opponentPatchInput struct {
	ParticipantID int            `json:"participant_id,omitempty"`
	Score         *int           `json:"score,omitempty"`
	Result        *models.Result `json:"result,omitempty"`
	Forfeit       *bool          `json:"forfeit,omitempty"`
}

func toOpponentPatch(in *opponentPatchInput) *engine.OpponentPatch {
	if in == nil {
		return nil
	}
	return &engine.OpponentPatch{
		ParticipantID: in.ParticipantID,
		Score:         in.Score,
		Result:        in.Result,
		Forfeit:       in.Forfeit,
	}
}

type updateMatchInput struct {
	Opponent1 *opponentPatchInput `json:"opponent1,omitempty"`
	Opponent2 *opponentPatchInput `json:"opponent2,omitempty"`
}

func (h *Handlers) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var in updateMatchInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.manager.UpdateMatch(r.Context(), engine.UpdateMatchInput{
		ID:        matchID,
		Opponent1: toOpponentPatch(in.Opponent1),
		Opponent2: toOpponentPatch(in.Opponent2),
	})
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match})
	h.broadcastMatch(match)
}

func (h *Handlers) UpdateMatchGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := idFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var in updateMatchInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	game, err := h.manager.UpdateMatchGame(r.Context(), engine.UpdateMatchGameInput{
		ID:        gameID,
		Opponent1: toOpponentPatch(in.Opponent1),
		Opponent2: toOpponentPatch(in.Opponent2),
	})
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match_game": game})
}

type updateSeedingInput struct {
	Order []int `json:"order"`
}

func (h *Handlers) UpdateSeeding(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var in updateSeedingInput
	if err := readJSON(w, r, &in); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.UpdateSeeding(r.Context(), stageID, in.Order); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ConfirmSeeding(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.ConfirmSeeding(r.Context(), stageID); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.broadcastStage(stageID, ws.EventParticipantAdvanced, nil)
}

// --- get ---

func (h *Handlers) GetStageData(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	data, err := h.manager.GetStageData(r.Context(), stageID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"stage_data": data})
}

func (h *Handlers) GetTournamentData(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	data, err := h.manager.GetTournamentData(r.Context(), tournamentID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournament_data": data})
}

func (h *Handlers) GetSeeding(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	order, err := h.manager.GetSeeding(r.Context(), stageID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"order": order})
}

func (h *Handlers) GetFinalStandings(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	standings, err := h.manager.GetFinalStandings(r.Context(), stageID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings})
}

func (h *Handlers) GetCurrentRace(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	race, err := h.manager.GetCurrentRace(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"race": race})
}

func (h *Handlers) GetMatchGames(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	games, err := h.manager.GetMatchGames(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match_games": games})
}

// --- find ---

func (h *Handlers) FindMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.manager.FindMatch(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match})
}

func (h *Handlers) FindNextMatches(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	participantID := 0
	if raw := r.URL.Query().Get("participant_id"); raw != "" {
		if v, err := parsePositiveInt(raw); err == nil {
			participantID = v
		}
	}
	matches, err := h.manager.FindNextMatches(r.Context(), matchID, participantID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches})
}

func (h *Handlers) FindPreviousMatches(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	matches, err := h.manager.FindPreviousMatches(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches})
}

func (h *Handlers) FindMatchLocation(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	loc, err := h.manager.FindMatchLocation(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"location": loc})
}

// --- reset ---

func (h *Handlers) ResetMatchResults(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	match, err := h.manager.ResetMatchResults(r.Context(), matchID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match": match})
	h.broadcastMatch(match)
}

func (h *Handlers) ResetMatchGameResults(w http.ResponseWriter, r *http.Request) {
	gameID, err := idFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	game, err := h.manager.ResetMatchGameResults(r.Context(), gameID)
	if err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"match_game": game})
}

func (h *Handlers) ResetSeeding(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.ResetSeeding(r.Context(), stageID); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- delete ---

func (h *Handlers) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.DeleteMatch(r.Context(), matchID); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteStage(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.DeleteStage(r.Context(), stageID); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.manager.DeleteTournament(r.Context(), tournamentID); err != nil {
		mapEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- snapshot export ---

func (h *Handlers) ExportStageSnapshot(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if h.export == nil {
		errorResponse(w, http.StatusServiceUnavailable, "snapshot export is not configured")
		return
	}
	result, err := h.export.ExportStageSnapshot(r.Context(), stageID, time.Now())
	if err != nil {
		serverErrorResponse(w, h.logger, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"upload": result})
}

// --- websocket ---

func (h *Handlers) ServeWs(w http.ResponseWriter, r *http.Request) {
	stageID, err := idFromURL(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	h.hub.Subscribe(conn, stageID)
}

func (h *Handlers) broadcastMatch(match *models.Match) {
	if h.hub == nil || match == nil {
		return
	}
	h.broadcastStage(match.StageID, ws.EventMatchUpdated, match)
	if match.Status == models.StatusCompleted && h.stageIsComplete(match.StageID) {
		h.broadcastStage(match.StageID, ws.EventStageCompleted, nil)
	}
}

// stageIsComplete reports whether every one of a stage's matches has
// reached a terminal status, i.e. there's nothing left to play.
func (h *Handlers) stageIsComplete(stageID int) bool {
	data, err := h.manager.GetStageData(context.Background(), stageID)
	if err != nil {
		return false
	}
	for _, match := range data.Matches {
		if match.Status != models.StatusCompleted && match.Status != models.StatusArchived {
			return false
		}
	}
	return true
}

func (h *Handlers) broadcastStage(stageID int, eventType ws.EventType, payload any) {
	if h.hub == nil {
		return
	}
	h.hub.Publish(ws.Event{Type: eventType, StageID: stageID, Payload: payload})
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid positive integer %q", raw)
	}
	return v, nil
}
