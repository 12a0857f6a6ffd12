package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/app"
	"github.com/winmix/tipsterhub/internal/circuitbreaker"
)

// --- Teams and matches ---

type createTeamRequest struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	League    string `json:"league"`
}

func (s *server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	team := &tipster.Team{Name: req.Name, ShortName: req.ShortName, League: req.League}
	if err := s.deps.Catalog.CreateTeam(r.Context(), team); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: team})
}

type createMatchRequest struct {
	League     string              `json:"league"`
	HomeTeamID string              `json:"home_team_id"`
	AwayTeamID string              `json:"away_team_id"`
	KickoffAt  time.Time           `json:"kickoff_at"`
	Status     tipster.MatchStatus `json:"status"`
}

func (s *server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m := &tipster.Match{
		League:     req.League,
		HomeTeamID: req.HomeTeamID,
		AwayTeamID: req.AwayTeamID,
		KickoffAt:  req.KickoffAt,
		Status:     req.Status,
	}
	if err := s.deps.Catalog.CreateMatch(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: m})
}

type matchResultRequest struct {
	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`
}

func (s *server) handleUpdateMatchResult(w http.ResponseWriter, r *http.Request) {
	var req matchResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.HomeScore == nil || req.AwayScore == nil {
		writeError(w, r, fmt.Errorf("home_score and away_score are required: %w", tipster.ErrBadRequest))
		return
	}
	m, err := s.deps.Catalog.UpdateMatchResult(r.Context(), chi.URLParam(r, "id"), *req.HomeScore, *req.AwayScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: m})
}

// --- Predictions ---

type createPredictionRequest struct {
	MatchID    string          `json:"match_id"`
	ModelID    string          `json:"model_id"`
	Outcome    tipster.Outcome `json:"predicted_outcome"`
	Confidence float64         `json:"confidence"`
}

func (s *server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := &tipster.Prediction{
		MatchID:    req.MatchID,
		ModelID:    req.ModelID,
		Outcome:    req.Outcome,
		Confidence: req.Confidence,
	}
	if err := s.deps.Catalog.CreatePrediction(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: p})
}

// --- Model registry ---

type createModelRequest struct {
	Name              string            `json:"model_name"`
	Version           string            `json:"model_version"`
	Type              tipster.ModelType `json:"model_type"`
	Algorithm         string            `json:"algorithm"`
	TrafficAllocation int               `json:"traffic_allocation"`
	Accuracy          *float64          `json:"accuracy"`
}

func (s *server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m := &tipster.Model{
		Name:              req.Name,
		Version:           req.Version,
		Type:              req.Type,
		Algorithm:         req.Algorithm,
		TrafficAllocation: req.TrafficAllocation,
		Accuracy:          req.Accuracy,
	}
	if err := s.deps.Catalog.CreateModel(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: m})
}

func (s *server) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	var upd app.ModelUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	m, err := s.deps.Catalog.UpdateModel(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: m})
}

func (s *server) handlePromoteModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Catalog.PromoteModel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: m})
}

func (s *server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteModel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Cache ---

func (s *server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Cache().Stats())
}

type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// handleCacheInvalidate drops entries by tag when ?tag= is given, otherwise
// by key substring ?pattern=. No parameters clears the whole cache.
func (s *server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cache := s.deps.Catalog.Cache()

	var n int
	if tags := q["tag"]; len(tags) > 0 {
		n = cache.InvalidateTags(tags...)
	} else {
		n = cache.Invalidate(q.Get("pattern"))
	}
	slog.LogAttrs(r.Context(), slog.LevelInfo, "cache invalidated via admin",
		slog.String("pattern", q.Get("pattern")),
		slog.Any("tags", q["tag"]),
		slog.Int("entries", n),
		slog.String("request_id", tipster.RequestIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: n})
}

// --- Edge ---

func (s *server) handleEdgeBreakers(w http.ResponseWriter, r *http.Request) {
	if s.deps.Breakers == nil {
		writeJSON(w, http.StatusOK, dataResponse{Data: []circuitbreaker.BreakerState{}})
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: s.deps.Breakers.Snapshot()})
}
