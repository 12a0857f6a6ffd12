// Package config provides configuration loading and database bootstrapping.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/storage"
)

// Bootstrap seeds the database from the config file. Rows that already exist
// (same team name, same model name and version) are left alone, so running it
// on every start is safe.
func Bootstrap(ctx context.Context, cfg *Config, store storage.Store) error {
	now := time.Now().UTC()

	// Seed teams
	for _, t := range cfg.Seed.Teams {
		team := &tipster.Team{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Name:      t.Name,
			ShortName: t.ShortName,
			League:    t.League,
			CreatedAt: now,
		}
		err := store.CreateTeam(ctx, team)
		if errors.Is(err, tipster.ErrConflict) {
			continue // already exists, skip
		}
		if err != nil {
			return fmt.Errorf("seed team %q: %w", t.Name, err)
		}
		slog.Info("bootstrapped team", "name", t.Name)
	}

	// Seed models
	for _, m := range cfg.Seed.Models {
		typ := tipster.ModelType(m.Type)
		if typ == "" {
			typ = tipster.ModelChallenger
		}
		if !typ.Valid() {
			return fmt.Errorf("seed model %q: type %q: %w", m.Name, m.Type, tipster.ErrBadRequest)
		}
		model := &tipster.Model{
			ID:                uuid.Must(uuid.NewV7()).String(),
			Name:              m.Name,
			Version:           m.Version,
			Type:              typ,
			Algorithm:         m.Algorithm,
			TrafficAllocation: m.TrafficAllocation,
			CreatedAt:         now,
		}
		err := store.CreateModel(ctx, model)
		if errors.Is(err, tipster.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed model %s@%s: %w", m.Name, m.Version, err)
		}
		slog.Info("bootstrapped model", "name", m.Name, "version", m.Version)
	}

	return nil
}
