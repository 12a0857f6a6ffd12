package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/querycache"
)

// dataResponse is the envelope for every read. Cached tells the dashboard
// whether the value came from the query cache.
type dataResponse struct {
	Data   any  `json:"data"`
	Cached bool `json:"cached"`
}

// writeList writes a list result. Empty lists are sent as [] rather than null.
func writeList[T any](w http.ResponseWriter, r *http.Request, res querycache.Result[[]T]) {
	if res.Status == querycache.StatusError {
		writeError(w, r, readErr(res.Err))
		return
	}
	data := res.Value
	if data == nil {
		data = []T{}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: data, Cached: res.Cached})
}

// writeOne writes a single-object result; an empty result is a 404.
func writeOne[T any](w http.ResponseWriter, r *http.Request, res querycache.Result[T]) {
	switch res.Status {
	case querycache.StatusError:
		writeError(w, r, readErr(res.Err))
	case querycache.StatusEmpty:
		writeJSON(w, http.StatusNotFound, errorResponse("not found", errTypeNotFound))
	default:
		writeJSON(w, http.StatusOK, dataResponse{Data: res.Value, Cached: res.Cached})
	}
}

// readErr classifies a failed read. Rejected options keep their meaning;
// every other failure is the backing query's fault.
func readErr(err error) error {
	if errorStatus(err) == http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", tipster.ErrUpstream, err)
	}
	return err
}

// listParams maps query parameters to list filter names.
type listParams map[string]string

var (
	teamParams       = listParams{"league": "league"}
	matchParams      = listParams{"status": "status", "league": "league", "team_id": "team_id", "home_team_id": "home_team_id", "away_team_id": "away_team_id"}
	predictionParams = listParams{"match_id": "match_id", "model_id": "model_id"}
	modelParams      = listParams{"type": "model_type", "name": "model_name"}
)

// parseListOptions reads filters, order, desc, limit and offset from the
// query string. Unknown parameters are ignored.
func parseListOptions(r *http.Request, params listParams) (tipster.ListOptions, error) {
	q := r.URL.Query()
	var opts tipster.ListOptions
	for param, filter := range params {
		if v := q.Get(param); v != "" {
			if opts.Filters == nil {
				opts.Filters = make(map[string]string)
			}
			opts.Filters[filter] = v
		}
	}
	opts.OrderBy = q.Get("order")

	var err error
	if v := q.Get("desc"); v != "" {
		if opts.Desc, err = strconv.ParseBool(v); err != nil {
			return opts, fmt.Errorf("desc %q: %w", v, tipster.ErrBadRequest)
		}
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%s %q: %w", name, v, tipster.ErrBadRequest)
		}
		*dst = n
	}
	return opts, nil
}

func (s *server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, teamParams)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, s.deps.Catalog.ListTeams(r.Context(), opts))
}

func (s *server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, matchParams)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if st, ok := opts.Filters["status"]; ok && !tipster.MatchStatus(st).Valid() {
		writeError(w, r, fmt.Errorf("status %q: %w", st, tipster.ErrBadRequest))
		return
	}
	writeList(w, r, s.deps.Catalog.ListMatches(r.Context(), opts))
}

func (s *server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	writeOne(w, r, s.deps.Catalog.GetMatch(r.Context(), chi.URLParam(r, "id")))
}

func (s *server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, predictionParams)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, s.deps.Catalog.ListPredictions(r.Context(), opts))
}

func (s *server) handleListModels(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r, modelParams)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, s.deps.Catalog.ListModels(r.Context(), opts))
}

func (s *server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	writeOne(w, r, s.deps.Catalog.GetModel(r.Context(), chi.URLParam(r, "id")))
}

func (s *server) handleModelPerformance(w http.ResponseWriter, r *http.Request) {
	writeOne(w, r, s.deps.Catalog.ModelPerformance(r.Context(), chi.URLParam(r, "id")))
}
