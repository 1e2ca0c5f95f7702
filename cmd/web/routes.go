package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/AdamBeresnev/esports-bracket/internal/config"
	"github.com/AdamBeresnev/esports-bracket/internal/httputil"
	"github.com/AdamBeresnev/esports-bracket/internal/live"
	"github.com/AdamBeresnev/esports-bracket/internal/metrics"
	"github.com/AdamBeresnev/esports-bracket/internal/service"
	"github.com/AdamBeresnev/esports-bracket/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type application struct {
	db       *sqlx.DB
	brackets *service.BracketService
	hub      *live.Hub
	registry *prometheus.Registry
	config   *config.Config
	logger   *slog.Logger
}

type generateRequest struct {
	Teams []string `json:"teams"`
	// One team per line, used when Teams is empty
	TeamList        string            `json:"teamList"`
	BracketSettings *bracket.Settings `json:"bracketSettings"`
}

type scoreInput struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type resultRequest struct {
	MatchID string      `json:"matchId"`
	Winner  string      `json:"winner"`
	Loser   string      `json:"loser"`
	Score   *scoreInput `json:"score"`
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httputil.RequestLogger(app.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.db.PingContext(r.Context()); err != nil {
			httputil.InternalServerError(w, "Database unavailable", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(app.registry))

	r.Get("/brackets", func(w http.ResponseWriter, r *http.Request) {
		status := bracket.BracketStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = bracket.BracketActive
		}
		switch status {
		case bracket.BracketSetup, bracket.BracketActive, bracket.BracketCompleted:
		default:
			httputil.BadRequest(w, "Unknown bracket status", nil)
			return
		}

		brackets, err := app.brackets.ListBrackets(r.Context(), status)
		if err != nil {
			httputil.InternalServerError(w, "Failed to list brackets", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"brackets": brackets})
	})

	r.Route("/tournaments/{id}/bracket", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			data, err := app.brackets.GetBracket(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeServiceError(w, "Failed to get bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, data)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req generateRequest
			if err := httputil.DecodeJSON(w, r, &req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			teams := req.Teams
			if len(teams) == 0 {
				teams = service.ParseTeamList(req.TeamList)
			}
			if len(teams) < 2 {
				httputil.BadRequest(w, "At least 2 teams are required", nil)
				return
			}

			data, err := app.brackets.GenerateBracket(r.Context(), chi.URLParam(r, "id"), teams, req.BracketSettings)
			if err != nil {
				writeServiceError(w, "Failed to generate bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, data)
		})

		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			var req resultRequest
			if err := httputil.DecodeJSON(w, r, &req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if req.MatchID == "" || req.Winner == "" {
				httputil.BadRequest(w, "matchId and winner are required", nil)
				return
			}

			matchID, err := service.ParseMatchID(req.MatchID)
			if err != nil {
				httputil.BadRequest(w, "Invalid match id", err)
				return
			}

			result := bracket.Result{MatchID: matchID, Winner: req.Winner, Loser: req.Loser}
			if req.Score != nil {
				result.Score1 = &req.Score.Team1
				result.Score2 = &req.Score.Team2
			}

			data, err := app.brackets.ReportResult(r.Context(), chi.URLParam(r, "id"), result)
			if err != nil {
				writeServiceError(w, "Failed to update bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, data)
		})

		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			if err := app.brackets.DeleteBracket(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeServiceError(w, "Failed to delete bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Bracket deleted"})
		})

		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			app.hub.ServeWS(w, r, chi.URLParam(r, "id"))
		})
	})

	return r
}

// writeServiceError maps service and engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrBracketNotFound):
		httputil.NotFound(w, "Bracket not found", err)
	case errors.Is(err, bracket.ErrNotFound):
		httputil.NotFound(w, "Match not found", err)
	case errors.Is(err, bracket.ErrInvalidInput),
		errors.Is(err, bracket.ErrInvalidResult),
		errors.Is(err, bracket.ErrMatchNotReady):
		httputil.BadRequest(w, err.Error(), err)
	case errors.Is(err, bracket.ErrMatchClosed):
		httputil.BadRequest(w, "Match is already completed", err)
	case errors.Is(err, bracket.ErrInconsistentState):
		httputil.InternalServerError(w, "Bracket is in an inconsistent state", err)
	case errors.Is(err, store.ErrBracketExists):
		httputil.Conflict(w, "Bracket already exists for this tournament", err)
	case errors.Is(err, store.ErrVersionConflict):
		httputil.Conflict(w, "Bracket was updated by someone else, reload and retry", err)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}
