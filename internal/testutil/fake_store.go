// Package testutil provides configurable test fakes for TipsterHub interfaces.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory implementation of storage.Store for testing.
// Lists return rows in insertion order and honor exact-match filters on
// the fields named in each method. Reads counts every read call per table.
type FakeStore struct {
	mu          sync.RWMutex
	teams       []*tipster.Team
	matches     []*tipster.Match
	predictions []*tipster.Prediction
	models      []*tipster.Model
	reads       map[string]int
	readErr     error
	pingErr     error
}

// NewFakeStore returns a FakeStore with empty collections.
func NewFakeStore() *FakeStore {
	return &FakeStore{reads: make(map[string]int)}
}

// Reads returns how many read calls have hit table.
func (s *FakeStore) Reads(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[table]
}

// FailReads makes every subsequent read return err; nil restores normal reads.
func (s *FakeStore) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailPing makes Ping return err.
func (s *FakeStore) FailPing(err error) {
	s.mu.Lock()
	s.pingErr = err
	s.mu.Unlock()
}

// read records a read of table and returns the injected error, if any.
// Callers hold s.mu for writing.
func (s *FakeStore) read(table string) error {
	s.reads[table]++
	return s.readErr
}

func filtered[T any](rows []*T, opts tipster.ListOptions, field func(*T, string) (string, bool)) ([]*T, error) {
	var out []*T
	for _, r := range rows {
		keep := true
		for name, want := range opts.Filters {
			got, ok := field(r, name)
			if !ok {
				return nil, fmt.Errorf("filter %q: %w", name, tipster.ErrBadRequest)
			}
			if got != want {
				keep = false
			}
		}
		if keep {
			cp := *r
			out = append(out, &cp)
		}
	}
	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// --- TeamStore ---

// CreateTeam stores a team.
func (s *FakeStore) CreateTeam(_ context.Context, t *tipster.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.teams {
		if have.Name == t.Name {
			return fmt.Errorf("team: %w", tipster.ErrConflict)
		}
	}
	cp := *t
	s.teams = append(s.teams, &cp)
	return nil
}

// GetTeam looks up a team by ID.
func (s *FakeStore) GetTeam(_ context.Context, id string) (*tipster.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("teams"); err != nil {
		return nil, err
	}
	for _, t := range s.teams {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tipster.ErrNotFound
}

// ListTeams supports the league filter.
func (s *FakeStore) ListTeams(_ context.Context, opts tipster.ListOptions) ([]*tipster.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("teams"); err != nil {
		return nil, err
	}
	return filtered(s.teams, opts, func(t *tipster.Team, name string) (string, bool) {
		if name == "league" {
			return t.League, true
		}
		return "", false
	})
}

// --- MatchStore ---

// CreateMatch stores a match after checking both teams exist.
func (s *FakeStore) CreateMatch(_ context.Context, m *tipster.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTeam(m.HomeTeamID) || !s.hasTeam(m.AwayTeamID) {
		return fmt.Errorf("match: %w: unknown team", tipster.ErrBadRequest)
	}
	cp := *m
	s.matches = append(s.matches, &cp)
	return nil
}

func (s *FakeStore) hasTeam(id string) bool {
	return slices.ContainsFunc(s.teams, func(t *tipster.Team) bool { return t.ID == id })
}

// GetMatch looks up a match by ID.
func (s *FakeStore) GetMatch(_ context.Context, id string) (*tipster.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("matches"); err != nil {
		return nil, err
	}
	for _, m := range s.matches {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, tipster.ErrNotFound
}

// ListMatches supports the status, league and team filters.
func (s *FakeStore) ListMatches(_ context.Context, opts tipster.ListOptions) ([]*tipster.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("matches"); err != nil {
		return nil, err
	}
	return filtered(s.matches, opts, func(m *tipster.Match, name string) (string, bool) {
		switch name {
		case "status":
			return string(m.Status), true
		case "league":
			return m.League, true
		case "home_team_id":
			return m.HomeTeamID, true
		case "away_team_id":
			return m.AwayTeamID, true
		}
		return "", false
	})
}

// SetMatchResult finishes a match and grades its predictions.
func (s *FakeStore) SetMatchResult(_ context.Context, id string, home, away int) (*tipster.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.ID != id {
			continue
		}
		m.HomeScore, m.AwayScore = &home, &away
		m.Status = tipster.MatchFinished
		outcome, _ := m.Outcome()
		for _, p := range s.predictions {
			if p.MatchID == id {
				correct := p.Outcome == outcome
				p.Correct = &correct
			}
		}
		cp := *m
		return &cp, nil
	}
	return nil, fmt.Errorf("match: %w", tipster.ErrNotFound)
}

// --- PredictionStore ---

// CreatePrediction stores a prediction; one per model per match.
func (s *FakeStore) CreatePrediction(_ context.Context, p *tipster.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.predictions {
		if have.MatchID == p.MatchID && have.ModelID == p.ModelID {
			return fmt.Errorf("prediction: %w", tipster.ErrConflict)
		}
	}
	cp := *p
	s.predictions = append(s.predictions, &cp)
	return nil
}

// ListPredictions supports the match_id and model_id filters.
func (s *FakeStore) ListPredictions(_ context.Context, opts tipster.ListOptions) ([]*tipster.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("predictions"); err != nil {
		return nil, err
	}
	return filtered(s.predictions, opts, func(p *tipster.Prediction, name string) (string, bool) {
		switch name {
		case "match_id":
			return p.MatchID, true
		case "model_id":
			return p.ModelID, true
		}
		return "", false
	})
}

// --- ModelStore ---

// CreateModel stores a model; name and version are unique together. A new
// champion demotes the previous one.
func (s *FakeStore) CreateModel(_ context.Context, m *tipster.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.models {
		if have.Name == m.Name && have.Version == m.Version {
			return fmt.Errorf("model: %w", tipster.ErrConflict)
		}
	}
	if m.Type == tipster.ModelChampion {
		for _, have := range s.models {
			if have.Type == tipster.ModelChampion {
				have.Type = tipster.ModelChallenger
			}
		}
	}
	cp := *m
	s.models = append(s.models, &cp)
	return nil
}

// GetModel looks up a model by ID.
func (s *FakeStore) GetModel(_ context.Context, id string) (*tipster.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("model_registry"); err != nil {
		return nil, err
	}
	if i := s.modelIndex(id); i >= 0 {
		cp := *s.models[i]
		return &cp, nil
	}
	return nil, tipster.ErrNotFound
}

// ListModels supports the model_type and model_name filters.
func (s *FakeStore) ListModels(_ context.Context, opts tipster.ListOptions) ([]*tipster.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("model_registry"); err != nil {
		return nil, err
	}
	return filtered(s.models, opts, func(m *tipster.Model, name string) (string, bool) {
		switch name {
		case "model_type":
			return string(m.Type), true
		case "model_name":
			return m.Name, true
		}
		return "", false
	})
}

// UpdateModel replaces a stored model.
func (s *FakeStore) UpdateModel(_ context.Context, m *tipster.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.modelIndex(m.ID)
	if i < 0 {
		return fmt.Errorf("model: %w", tipster.ErrNotFound)
	}
	cp := *m
	s.models[i] = &cp
	return nil
}

// DeleteModel removes a model and its predictions.
func (s *FakeStore) DeleteModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.modelIndex(id)
	if i < 0 {
		return fmt.Errorf("model: %w", tipster.ErrNotFound)
	}
	s.models = slices.Delete(s.models, i, i+1)
	s.predictions = slices.DeleteFunc(s.predictions, func(p *tipster.Prediction) bool { return p.ModelID == id })
	return nil
}

// PromoteModel makes id the only champion.
func (s *FakeStore) PromoteModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modelIndex(id) < 0 {
		return fmt.Errorf("model: %w", tipster.ErrNotFound)
	}
	for _, m := range s.models {
		switch {
		case m.ID == id:
			m.Type = tipster.ModelChampion
		case m.Type == tipster.ModelChampion:
			m.Type = tipster.ModelChallenger
		}
	}
	return nil
}

func (s *FakeStore) modelIndex(id string) int {
	return slices.IndexFunc(s.models, func(m *tipster.Model) bool { return m.ID == id })
}

// Ping returns the error set by FailPing.
func (s *FakeStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

// Close is a no-op.
func (s *FakeStore) Close() error { return nil }
