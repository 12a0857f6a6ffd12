package config

import (
	"context"
	"errors"
	"testing"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := sqlite.New(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	cfg := &Config{
		Seed: SeedConfig{
			Teams: []TeamEntry{
				{Name: "Ajax", ShortName: "AJA", League: "eredivisie"},
				{Name: "PSV", League: "eredivisie"},
			},
			Models: []ModelEntry{
				{Name: "poisson", Version: "1.0.0", Type: "champion", TrafficAllocation: 90},
				{Name: "elo", Version: "0.2.0", TrafficAllocation: 10},
			},
		},
	}

	// First call seeds everything.
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("bootstrap:", err)
	}

	// Second call is idempotent -- no errors, no duplicates.
	if err := Bootstrap(ctx, cfg, store); err != nil {
		t.Fatal("idempotent bootstrap:", err)
	}

	teams, err := store.ListTeams(ctx, tipster.ListOptions{})
	if err != nil {
		t.Fatal("list teams:", err)
	}
	if len(teams) != 2 {
		t.Errorf("team count after second bootstrap = %d, want 2", len(teams))
	}

	models, err := store.ListModels(ctx, tipster.ListOptions{OrderBy: "model_name"})
	if err != nil {
		t.Fatal("list models:", err)
	}
	if len(models) != 2 {
		t.Fatalf("model count after second bootstrap = %d, want 2", len(models))
	}
	// Ordered by name: elo, poisson.
	if models[0].Type != tipster.ModelChallenger {
		t.Errorf("elo type = %q, want challenger default", models[0].Type)
	}
	if models[1].Type != tipster.ModelChampion {
		t.Errorf("poisson type = %q, want champion", models[1].Type)
	}
}

func TestBootstrapRejectsUnknownModelType(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	cfg := &Config{Seed: SeedConfig{Models: []ModelEntry{{Name: "x", Version: "1", Type: "shadow"}}}}
	if err := Bootstrap(context.Background(), cfg, store); !errors.Is(err, tipster.ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}
