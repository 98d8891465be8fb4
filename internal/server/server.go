// Package server exposes the HTTP API: match intake plus the historical and
// leaderboard read endpoints.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"rtcwstats/internal/service"
	"rtcwstats/internal/store"
)

// StatsServer serves the intake, read and admin API.
type StatsServer struct {
	pipeline     *service.Pipeline
	queries      *service.QueryService
	leaderboards *service.LeaderboardService
	seasons      *service.SeasonService
	groups       *service.GroupService
	logger       zerolog.Logger
}

func NewStatsServer(
	pipeline *service.Pipeline,
	queries *service.QueryService,
	leaderboards *service.LeaderboardService,
	seasons *service.SeasonService,
	groups *service.GroupService,
	logger zerolog.Logger,
) *StatsServer {
	return &StatsServer{
		pipeline:     pipeline,
		queries:      queries,
		leaderboards: leaderboards,
		seasons:      seasons,
		groups:       groups,
		logger:       logger,
	}
}

// Routes mounts every endpoint on a fresh router. Middleware is attached by
// the caller so tests can hit handlers bare.
func (s *StatsServer) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/submit", s.handleSubmit)
	r.Get("/stats/player/{guid}/region/{region}/type/{type}", s.handlePlayerStats)
	r.Get("/wstats/player/{guid}/region/{region}/type/{type}", s.handleWeaponStats)
	r.Get("/leaders/{category}/region/{region}/type/{type}", s.handleLeaders)
	r.Get("/eloprogress/player/{guid}/region/{region}/type/{type}", s.handleRatingHistory)
	r.Get("/matches/recent/region/{region}/type/{type}", s.handleRecentMatches)
	r.Post("/admin/finalize/{matchID}", s.handleFinalize)
	r.Post("/admin/season/{name}/region/{region}/type/{type}", s.handleSeasonRollover)
	r.Post("/admin/groups/region/{region}/type/{type}", s.handleGroupPeriod)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *StatsServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	matchID, err := s.pipeline.ProcessPayload(r.Context(), payload)
	if err != nil {
		var integrity service.IntegrityError
		switch {
		case errors.As(err, &integrity):
			s.writeError(w, r, http.StatusUnprocessableEntity, err)
		case errors.Is(err, service.ErrAlreadyProcessed):
			s.writeError(w, r, http.StatusConflict, err)
		default:
			s.writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"match_id": matchID})
}

func (s *StatsServer) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	agg, err := s.queries.PlayerStats(r.Context(), chi.URLParam(r, "guid"), regionType(r))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agg)
}

func (s *StatsServer) handleWeaponStats(w http.ResponseWriter, r *http.Request) {
	agg, err := s.queries.WeaponStats(r.Context(), chi.URLParam(r, "guid"), regionType(r))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agg)
}

func (s *StatsServer) handleLeaders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.leaderboards.Top(r.Context(), chi.URLParam(r, "category"), regionType(r), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *StatsServer) handleRatingHistory(w http.ResponseWriter, r *http.Request) {
	deltas, err := s.queries.RatingHistory(r.Context(), chi.URLParam(r, "guid"), regionType(r))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deltas)
}

func (s *StatsServer) handleRecentMatches(w http.ResponseWriter, r *http.Request) {
	ids, err := s.queries.RecentMatches(r.Context(), regionType(r))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"matches": ids})
}

// handleFinalize folds a stored match that never received its second round.
func (s *StatsServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if err := s.pipeline.FinalizeStored(r.Context(), matchID); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyProcessed):
			s.writeError(w, r, http.StatusConflict, err)
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, r, http.StatusNotFound, err)
		default:
			s.writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"match_id": matchID})
}

func (s *StatsServer) handleSeasonRollover(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.seasons.Rollover(r.Context(), name, regionType(r)); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"season": name})
}

func (s *StatsServer) handleGroupPeriod(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.GroupPeriod(r.Context(), regionType(r)); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *StatsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// regionType rebuilds the aggregation bucket from the route params.
func regionType(r *http.Request) string {
	return chi.URLParam(r, "region") + "#" + chi.URLParam(r, "type")
}

func (s *StatsServer) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	s.writeError(w, r, http.StatusInternalServerError, err)
}

func (s *StatsServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *StatsServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
