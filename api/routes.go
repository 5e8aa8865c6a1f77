// Package api is the thin HTTP front door over the engine.Manager,
// grounded on the teacher's routes/routes.go + cmd/main.go wiring: chi
// for routing, go-chi/cors for browser-facing clients, golang-jwt +
// bcrypt for organizer auth, and swaggo/http-swagger for the /swagger/*
// UI route (no API document is generated or registered in this
// repository), the same ambient stack the teacher puts in
// front of its services layer.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewRouter builds the full route tree: public reads, organizer-gated
// mutations, the live progression websocket, and swagger docs.
func NewRouter(h *Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/login", h.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}", h.GetTournamentData)

		r.Group(func(auth chi.Router) {
			auth.Use(h.auth.Authenticate)
			auth.Use(RequireOrganizer)
			auth.Post("/", h.CreateTournament)
			auth.Delete("/{tournamentID}", h.DeleteTournament)
		})
	})

	router.Route("/stages", func(r chi.Router) {
		r.Get("/{stageID}", h.GetStageData)
		r.Get("/{stageID}/seeding", h.GetSeeding)
		r.Get("/{stageID}/standings", h.GetFinalStandings)
		r.Get("/{stageID}/snapshot", h.ExportStageSnapshot)
		r.Get("/ws/{stageID}", h.ServeWs)

		r.Group(func(auth chi.Router) {
			auth.Use(h.auth.Authenticate)
			auth.Use(RequireOrganizer)
			auth.Post("/", h.CreateStage)
			auth.Delete("/{stageID}", h.DeleteStage)
			auth.Put("/{stageID}/seeding", h.UpdateSeeding)
			auth.Post("/{stageID}/seeding/confirm", h.ConfirmSeeding)
			auth.Post("/{stageID}/seeding/reset", h.ResetSeeding)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.FindMatch)
		r.Get("/{matchID}/next", h.FindNextMatches)
		r.Get("/{matchID}/previous", h.FindPreviousMatches)
		r.Get("/{matchID}/location", h.FindMatchLocation)
		r.Get("/{matchID}/games", h.GetMatchGames)
		r.Get("/{matchID}/race", h.GetCurrentRace)

		r.Group(func(auth chi.Router) {
			auth.Use(h.auth.Authenticate)
			auth.Use(RequireOrganizer)
			auth.Patch("/{matchID}", h.UpdateMatch)
			auth.Post("/{matchID}/reset", h.ResetMatchResults)
			auth.Delete("/{matchID}", h.DeleteMatch)
		})
	})

	router.Route("/match-games", func(r chi.Router) {
		r.Group(func(auth chi.Router) {
			auth.Use(h.auth.Authenticate)
			auth.Use(RequireOrganizer)
			auth.Patch("/{gameID}", h.UpdateMatchGame)
			auth.Post("/{gameID}/reset", h.ResetMatchGameResults)
		})
	})

	return router
}
