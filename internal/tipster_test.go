package tipster

import (
	"context"
	"encoding/json"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestMatch_Outcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		match  Match
		want   Outcome
		wantOK bool
	}{
		{name: "home win", match: Match{Status: MatchFinished, HomeScore: intPtr(2), AwayScore: intPtr(1)}, want: OutcomeHome, wantOK: true},
		{name: "away win", match: Match{Status: MatchFinished, HomeScore: intPtr(0), AwayScore: intPtr(3)}, want: OutcomeAway, wantOK: true},
		{name: "draw", match: Match{Status: MatchFinished, HomeScore: intPtr(1), AwayScore: intPtr(1)}, want: OutcomeDraw, wantOK: true},
		{name: "not finished", match: Match{Status: MatchLive, HomeScore: intPtr(1), AwayScore: intPtr(0)}},
		{name: "missing score", match: Match{Status: MatchFinished, HomeScore: intPtr(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.match.Outcome()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Outcome() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestEnumValid(t *testing.T) {
	t.Parallel()

	if !MatchScheduled.Valid() || MatchStatus("postponed").Valid() {
		t.Error("MatchStatus.Valid mismatch")
	}
	if !OutcomeDraw.Valid() || Outcome("1").Valid() {
		t.Error("Outcome.Valid mismatch")
	}
	if !ModelRetired.Valid() || ModelType("shadow").Valid() {
		t.Error("ModelType.Valid mismatch")
	}
}

func TestListOptions_EmptyJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Errorf("Marshal(ListOptions{}) = %s, want {}", b)
	}
}

func TestContextWithRequestID_RequestIDFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{name: "non-empty", id: "req-abc-123"},
		{name: "empty string", id: ""},
		{name: "uuid-like", id: "018f1b2c-3d4e-7a5b-8c9d-0e1f2a3b4c5d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := ContextWithRequestID(context.Background(), tt.id)
			if got := RequestIDFromContext(ctx); got != tt.id {
				t.Errorf("RequestIDFromContext = %q, want %q", got, tt.id)
			}
		})
	}

	t.Run("missing from context", func(t *testing.T) {
		t.Parallel()
		if got := RequestIDFromContext(context.Background()); got != "" {
			t.Errorf("RequestIDFromContext on bare ctx = %q, want empty", got)
		}
	})
}
