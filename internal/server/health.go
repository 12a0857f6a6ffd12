package server

import (
	"log/slog"
	"net/http"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/circuitbreaker"
)

var (
	okBody  = []byte("ok")
	plainCT = []string{"text/plain"}
)

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

type readyResponse struct {
	Status       string   `json:"status"` // ready, degraded or not_ready
	Database     string   `json:"database"`
	CacheEntries int      `json:"cache_entries"`
	OpenBreakers []string `json:"open_breakers,omitempty"`
}

// handleReadyz reports 503 while the database is unreachable. Open edge
// breakers only degrade readiness: table reads still work without them.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready", Database: "ok"}
	if s.deps.Catalog != nil {
		resp.CacheEntries = s.deps.Catalog.Cache().Len()
	}
	if s.deps.Breakers != nil {
		for _, b := range s.deps.Breakers.Snapshot() {
			if b.State == circuitbreaker.StateOpen.String() {
				resp.OpenBreakers = append(resp.OpenBreakers, b.Function)
			}
		}
		if len(resp.OpenBreakers) > 0 {
			resp.Status = "degraded"
		}
	}
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			slog.LogAttrs(r.Context(), slog.LevelWarn, "readiness check failed",
				slog.String("error", err.Error()),
				slog.String("request_id", tipster.RequestIDFromContext(r.Context())),
			)
			resp.Status, resp.Database = "not_ready", "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
