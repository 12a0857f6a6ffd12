// Package storage defines persistence interfaces for the TipsterHub tables.
package storage

import (
	"context"

	tipster "github.com/winmix/tipsterhub/internal"
)

// TeamStore manages team persistence.
type TeamStore interface {
	CreateTeam(ctx context.Context, t *tipster.Team) error
	GetTeam(ctx context.Context, id string) (*tipster.Team, error)
	ListTeams(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Team, error)
}

// MatchStore manages fixture persistence.
type MatchStore interface {
	CreateMatch(ctx context.Context, m *tipster.Match) error
	GetMatch(ctx context.Context, id string) (*tipster.Match, error)
	ListMatches(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Match, error)
	// SetMatchResult records the final score, marks the match finished and
	// grades every prediction made for it, atomically.
	SetMatchResult(ctx context.Context, id string, home, away int) (*tipster.Match, error)
}

// PredictionStore manages prediction persistence.
type PredictionStore interface {
	CreatePrediction(ctx context.Context, p *tipster.Prediction) error
	ListPredictions(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Prediction, error)
}

// ModelStore manages the model registry.
type ModelStore interface {
	// CreateModel inserts m. When m is a champion the previous champion is
	// demoted to challenger in the same transaction.
	CreateModel(ctx context.Context, m *tipster.Model) error
	GetModel(ctx context.Context, id string) (*tipster.Model, error)
	ListModels(ctx context.Context, opts tipster.ListOptions) ([]*tipster.Model, error)
	UpdateModel(ctx context.Context, m *tipster.Model) error
	DeleteModel(ctx context.Context, id string) error
	// PromoteModel makes id the champion and demotes the previous champion
	// to challenger, atomically.
	PromoteModel(ctx context.Context, id string) error
}

// Store combines all storage interfaces.
type Store interface {
	TeamStore
	MatchStore
	PredictionStore
	ModelStore
	Ping(ctx context.Context) error
	Close() error
}
