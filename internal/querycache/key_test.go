package querycache

import (
	"strings"
	"testing"

	tipster "github.com/winmix/tipsterhub/internal"
)

func TestBuildKey_Determinism(t *testing.T) {
	t.Parallel()
	opts := map[string]any{"limit": 10, "order": "asc"}

	k1 := BuildKey("matches", opts)
	k2 := BuildKey("matches", map[string]any{"order": "asc", "limit": 10})
	if k1 != k2 {
		t.Errorf("same options should produce same key: %q vs %q", k1, k2)
	}
}

func TestBuildKey_DifferentOptions(t *testing.T) {
	t.Parallel()
	k10 := BuildKey("matches", map[string]any{"limit": 10})
	k20 := BuildKey("matches", map[string]any{"limit": 20})
	if k10 == k20 {
		t.Errorf("different limits should produce different keys, both %q", k10)
	}
}

func TestBuildKey_EmptyOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts any
	}{
		{name: "nil", opts: nil},
		{name: "empty map", opts: map[string]any{}},
		{name: "zero list options", opts: tipster.ListOptions{}},
		{name: "nil pointer", opts: (*tipster.ListOptions)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildKey("matches", tt.opts); got != "matches:{}" {
				t.Errorf("BuildKey() = %q, want %q", got, "matches:{}")
			}
		})
	}

	if BuildKey("matches", nil) == BuildKey("matches", tipster.ListOptions{Limit: 10}) {
		t.Error("empty options must not act as a wildcard")
	}
}

func TestBuildKey_StructMatchesEquivalentMap(t *testing.T) {
	t.Parallel()
	fromStruct := BuildKey("matches", tipster.ListOptions{
		Filters: map[string]string{"status": "finished", "league": "epl"},
		OrderBy: "kickoff_at",
		Desc:    true,
		Limit:   10,
	})
	fromMap := BuildKey("matches", map[string]any{
		"limit":    10,
		"desc":     true,
		"order_by": "kickoff_at",
		"filters":  map[string]string{"league": "epl", "status": "finished"},
	})
	if fromStruct != fromMap {
		t.Errorf("struct and map keys differ:\n%s\n%s", fromStruct, fromMap)
	}
}

func TestBuildKey_DistinguishesAllFields(t *testing.T) {
	t.Parallel()
	base := tipster.ListOptions{Limit: 10}
	variants := []tipster.ListOptions{
		{Limit: 10, Offset: 10},
		{Limit: 10, OrderBy: "kickoff_at"},
		{Limit: 10, OrderBy: "kickoff_at", Desc: true},
		{Limit: 10, Filters: map[string]string{"status": "live"}},
	}
	seen := map[string]bool{BuildKey("matches", base): true}
	for _, v := range variants {
		k := BuildKey("matches", v)
		if seen[k] {
			t.Errorf("key collision for %+v: %q", v, k)
		}
		seen[k] = true
	}
}

func TestBuildKey_ResourcePrefix(t *testing.T) {
	t.Parallel()
	k := BuildKey("model_registry", nil)
	if k != "model_registry:{}" {
		t.Errorf("key = %q, want %q", k, "model_registry:{}")
	}
	if BuildKey("teams", nil) == BuildKey("matches", nil) {
		t.Error("different resources should produce different keys")
	}
}

func TestBuildKey_Unserializable(t *testing.T) {
	t.Parallel()
	ch := make(chan int)
	k1 := BuildKey("matches", ch)
	k2 := BuildKey("matches", ch)
	if k1 != k2 {
		t.Errorf("unserializable options should still be stable: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, "matches:") {
		t.Errorf("key %q should keep the resource prefix", k1)
	}
}
