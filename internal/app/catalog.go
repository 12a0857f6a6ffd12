package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/querycache"
	"github.com/winmix/tipsterhub/internal/storage"
)

// Cache resource names. Table reads use the table name so that a write can
// invalidate every cached read of its table by substring.
const (
	ResourceTeams            = "teams"
	ResourceMatches          = "matches"
	ResourcePredictions      = "predictions"
	ResourceModels           = "model_registry"
	ResourceModelPerformance = "fn:model-performance"
)

// PerformanceSource computes model analytics remotely.
type PerformanceSource interface {
	ModelPerformance(ctx context.Context, modelID string) (*tipster.ModelPerformance, error)
}

// CatalogOptions configures a Catalog.
type CatalogOptions struct {
	TTLs        map[string]time.Duration // per resource; missing = cache default
	Performance PerformanceSource        // nil disables ModelPerformance
	Logger      *slog.Logger
}

// Catalog is the read/write service for the dashboard tables. Reads go
// through the query cache; writes go straight to storage and then invalidate
// the cached reads they made stale.
type Catalog struct {
	store  storage.Store
	cache  *querycache.Cache
	perf   PerformanceSource
	ttls   map[string]time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalog returns a Catalog backed by store and cache.
func NewCatalog(store storage.Store, cache *querycache.Cache, opts CatalogOptions) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:  store,
		cache:  cache,
		perf:   opts.Performance,
		ttls:   opts.TTLs,
		logger: logger,
		now:    time.Now,
	}
}

// Cache returns the query cache the catalog reads through.
func (c *Catalog) Cache() *querycache.Cache { return c.cache }

func (c *Catalog) fetchOpts(resource string, query any, tags ...string) querycache.FetchOptions {
	return querycache.FetchOptions{TTL: c.ttls[resource], Query: query, Tags: tags}
}

// invalidate drops cached reads of each resource: keys containing the name,
// plus entries tagged with it.
func (c *Catalog) invalidate(ctx context.Context, resources ...string) {
	n := 0
	for _, r := range resources {
		n += c.cache.Invalidate(r)
	}
	n += c.cache.InvalidateTags(resources...)
	c.logger.LogAttrs(ctx, slog.LevelDebug, "cache invalidated",
		slog.Any("resources", resources),
		slog.Int("entries", n),
	)
}

// byID is the cache query for single-row reads.
type byID struct {
	ID string `json:"id"`
}

// --- Reads ---

// ListTeams returns teams matching opts.
func (c *Catalog) ListTeams(ctx context.Context, opts tipster.ListOptions) querycache.Result[[]*tipster.Team] {
	return querycache.Fetch(ctx, c.cache, ResourceTeams, func(ctx context.Context) ([]*tipster.Team, error) {
		return c.store.ListTeams(ctx, opts)
	}, c.fetchOpts(ResourceTeams, opts))
}

// ListMatches returns fixtures matching opts.
func (c *Catalog) ListMatches(ctx context.Context, opts tipster.ListOptions) querycache.Result[[]*tipster.Match] {
	return querycache.Fetch(ctx, c.cache, ResourceMatches, func(ctx context.Context) ([]*tipster.Match, error) {
		return c.store.ListMatches(ctx, opts)
	}, c.fetchOpts(ResourceMatches, opts))
}

// GetMatch returns one fixture. A missing match is an empty result, not an
// error, and is cached like any other read.
func (c *Catalog) GetMatch(ctx context.Context, id string) querycache.Result[*tipster.Match] {
	return querycache.Fetch(ctx, c.cache, ResourceMatches, func(ctx context.Context) (*tipster.Match, error) {
		return missingAsEmpty(c.store.GetMatch(ctx, id))
	}, c.fetchOpts(ResourceMatches, byID{ID: id}))
}

// ListPredictions returns predictions matching opts.
func (c *Catalog) ListPredictions(ctx context.Context, opts tipster.ListOptions) querycache.Result[[]*tipster.Prediction] {
	return querycache.Fetch(ctx, c.cache, ResourcePredictions, func(ctx context.Context) ([]*tipster.Prediction, error) {
		return c.store.ListPredictions(ctx, opts)
	}, c.fetchOpts(ResourcePredictions, opts))
}

// ListModels returns model registry rows matching opts.
func (c *Catalog) ListModels(ctx context.Context, opts tipster.ListOptions) querycache.Result[[]*tipster.Model] {
	return querycache.Fetch(ctx, c.cache, ResourceModels, func(ctx context.Context) ([]*tipster.Model, error) {
		return c.store.ListModels(ctx, opts)
	}, c.fetchOpts(ResourceModels, opts))
}

// GetModel returns one registry row, or an empty result when it does not exist.
func (c *Catalog) GetModel(ctx context.Context, id string) querycache.Result[*tipster.Model] {
	return querycache.Fetch(ctx, c.cache, ResourceModels, func(ctx context.Context) (*tipster.Model, error) {
		return missingAsEmpty(c.store.GetModel(ctx, id))
	}, c.fetchOpts(ResourceModels, byID{ID: id}))
}

// ModelPerformance returns remotely computed analytics for a model. The
// result depends on the registry and on graded predictions, so it is tagged
// with both tables.
func (c *Catalog) ModelPerformance(ctx context.Context, modelID string) querycache.Result[*tipster.ModelPerformance] {
	if c.perf == nil {
		return querycache.Result[*tipster.ModelPerformance]{
			Status: querycache.StatusError,
			Err:    fmt.Errorf("model performance: %w: no edge client configured", tipster.ErrUpstream),
		}
	}
	return querycache.Fetch(ctx, c.cache, ResourceModelPerformance, func(ctx context.Context) (*tipster.ModelPerformance, error) {
		return c.perf.ModelPerformance(ctx, modelID)
	}, c.fetchOpts(ResourceModelPerformance, map[string]string{"model_id": modelID}, ResourceModels, ResourcePredictions))
}

func missingAsEmpty[T any](v *T, err error) (*T, error) {
	if errors.Is(err, tipster.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// --- Writes ---

// CreateTeam validates and stores a new team.
func (c *Catalog) CreateTeam(ctx context.Context, t *tipster.Team) error {
	if t.Name == "" || t.League == "" {
		return fmt.Errorf("team name and league are required: %w", tipster.ErrBadRequest)
	}
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	t.CreatedAt = c.now().UTC()
	if err := c.store.CreateTeam(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, ResourceTeams)
	return nil
}

// CreateMatch validates and stores a new fixture.
func (c *Catalog) CreateMatch(ctx context.Context, m *tipster.Match) error {
	switch {
	case m.HomeTeamID == "" || m.AwayTeamID == "":
		return fmt.Errorf("both teams are required: %w", tipster.ErrBadRequest)
	case m.HomeTeamID == m.AwayTeamID:
		return fmt.Errorf("a team cannot play itself: %w", tipster.ErrBadRequest)
	case m.KickoffAt.IsZero():
		return fmt.Errorf("kickoff_at is required: %w", tipster.ErrBadRequest)
	}
	if m.Status == "" {
		m.Status = tipster.MatchScheduled
	}
	if !m.Status.Valid() {
		return fmt.Errorf("status %q: %w", m.Status, tipster.ErrBadRequest)
	}
	m.ID = uuid.Must(uuid.NewV7()).String()
	m.CreatedAt = c.now().UTC()
	if err := c.store.CreateMatch(ctx, m); err != nil {
		return err
	}
	c.invalidate(ctx, ResourceMatches)
	return nil
}

// UpdateMatchResult records a final score. Predictions for the match are
// graded in the same write, so both tables are invalidated.
func (c *Catalog) UpdateMatchResult(ctx context.Context, id string, home, away int) (*tipster.Match, error) {
	m, err := c.store.SetMatchResult(ctx, id, home, away)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ResourceMatches, ResourcePredictions)
	return m, nil
}

// CreatePrediction validates and stores a model's call on a match.
func (c *Catalog) CreatePrediction(ctx context.Context, p *tipster.Prediction) error {
	switch {
	case p.MatchID == "" || p.ModelID == "":
		return fmt.Errorf("match_id and model_id are required: %w", tipster.ErrBadRequest)
	case !p.Outcome.Valid():
		return fmt.Errorf("predicted_outcome %q: %w", p.Outcome, tipster.ErrBadRequest)
	case p.Confidence < 0 || p.Confidence > 1:
		return fmt.Errorf("confidence %v out of range: %w", p.Confidence, tipster.ErrBadRequest)
	}
	p.ID = uuid.Must(uuid.NewV7()).String()
	p.Correct = nil
	p.CreatedAt = c.now().UTC()
	if err := c.store.CreatePrediction(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, ResourcePredictions)
	return nil
}

// CreateModel registers a model version. New models default to challenger.
func (c *Catalog) CreateModel(ctx context.Context, m *tipster.Model) error {
	if m.Name == "" || m.Version == "" {
		return fmt.Errorf("model_name and model_version are required: %w", tipster.ErrBadRequest)
	}
	if m.Type == "" {
		m.Type = tipster.ModelChallenger
	}
	if err := validateModel(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.Must(uuid.NewV7()).String()
	}
	m.CreatedAt = c.now().UTC()

	if err := c.store.CreateModel(ctx, m); err != nil {
		return err
	}
	c.invalidate(ctx, ResourceModels)
	return nil
}

// ModelUpdate is a partial update of a registry row. Nil fields are unchanged.
type ModelUpdate struct {
	Type              *tipster.ModelType `json:"model_type"`
	Algorithm         *string            `json:"algorithm"`
	TrafficAllocation *int               `json:"traffic_allocation"`
	Accuracy          *float64           `json:"accuracy"`
}

// UpdateModel applies upd to the model with the given ID. The champion role
// only changes hands through PromoteModel.
func (c *Catalog) UpdateModel(ctx context.Context, id string, upd ModelUpdate) (*tipster.Model, error) {
	m, err := c.store.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Type != nil {
		if *upd.Type == tipster.ModelChampion && m.Type != tipster.ModelChampion {
			return nil, fmt.Errorf("use promote to make a model champion: %w", tipster.ErrBadRequest)
		}
		m.Type = *upd.Type
	}
	if upd.Algorithm != nil {
		m.Algorithm = *upd.Algorithm
	}
	if upd.TrafficAllocation != nil {
		m.TrafficAllocation = *upd.TrafficAllocation
	}
	if upd.Accuracy != nil {
		m.Accuracy = upd.Accuracy
	}
	if err := validateModel(m); err != nil {
		return nil, err
	}
	if err := c.store.UpdateModel(ctx, m); err != nil {
		return nil, err
	}
	c.invalidate(ctx, ResourceModels)
	return m, nil
}

// PromoteModel makes the model champion and demotes the previous one.
func (c *Catalog) PromoteModel(ctx context.Context, id string) (*tipster.Model, error) {
	if err := c.store.PromoteModel(ctx, id); err != nil {
		return nil, err
	}
	c.invalidate(ctx, ResourceModels)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "model promoted", slog.String("model_id", id))
	return c.store.GetModel(ctx, id)
}

// DeleteModel removes a model. Its predictions go with it.
func (c *Catalog) DeleteModel(ctx context.Context, id string) error {
	if err := c.store.DeleteModel(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, ResourceModels, ResourcePredictions)
	return nil
}

func validateModel(m *tipster.Model) error {
	if !m.Type.Valid() {
		return fmt.Errorf("model_type %q: %w", m.Type, tipster.ErrBadRequest)
	}
	if m.TrafficAllocation < 0 || m.TrafficAllocation > 100 {
		return fmt.Errorf("traffic_allocation %d out of range: %w", m.TrafficAllocation, tipster.ErrBadRequest)
	}
	if m.Accuracy != nil && (*m.Accuracy < 0 || *m.Accuracy > 1) {
		return fmt.Errorf("accuracy %v out of range: %w", *m.Accuracy, tipster.ErrBadRequest)
	}
	return nil
}
