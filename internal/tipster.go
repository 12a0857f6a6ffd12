// Package tipster defines domain types for the TipsterHub data service.
// This package has no project imports -- it is the dependency root.
package tipster

import (
	"context"
	"time"
)

// --- Teams and matches ---

// Team is a club that appears in fixtures.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name,omitempty"`
	League    string    `json:"league"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchStatus is the lifecycle state of a fixture.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchLive, MatchFinished:
		return true
	}
	return false
}

// Match is a single fixture between two teams.
type Match struct {
	ID         string      `json:"id"`
	League     string      `json:"league"`
	HomeTeamID string      `json:"home_team_id"`
	AwayTeamID string      `json:"away_team_id"`
	KickoffAt  time.Time   `json:"kickoff_at"`
	Status     MatchStatus `json:"status"`
	HomeScore  *int        `json:"home_score,omitempty"`
	AwayScore  *int        `json:"away_score,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Outcome is a full-time result from the home side's perspective.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeHome || o == OutcomeDraw || o == OutcomeAway
}

// Outcome returns the result of a finished match. ok is false while the
// match is not finished or a score is missing.
func (m *Match) Outcome() (o Outcome, ok bool) {
	if m.Status != MatchFinished || m.HomeScore == nil || m.AwayScore == nil {
		return "", false
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return OutcomeHome, true
	case *m.HomeScore < *m.AwayScore:
		return OutcomeAway, true
	default:
		return OutcomeDraw, true
	}
}

// --- Predictions and models ---

// Prediction is one model's call on one match.
type Prediction struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	ModelID    string    `json:"model_id"`
	Outcome    Outcome   `json:"predicted_outcome"`
	Confidence float64   `json:"confidence"`            // 0.0 to 1.0
	Correct    *bool     `json:"was_correct,omitempty"` // nil until the match is finished
	CreatedAt  time.Time `json:"created_at"`
}

// ModelType is a model's role in the champion/challenger setup.
type ModelType string

const (
	ModelChampion   ModelType = "champion"
	ModelChallenger ModelType = "challenger"
	ModelRetired    ModelType = "retired"
)

// Valid reports whether t is a known model type.
func (t ModelType) Valid() bool {
	switch t {
	case ModelChampion, ModelChallenger, ModelRetired:
		return true
	}
	return false
}

// Model is a row of the model registry.
type Model struct {
	ID                string    `json:"id"`
	Name              string    `json:"model_name"`
	Version           string    `json:"model_version"`
	Type              ModelType `json:"model_type"`
	Algorithm         string    `json:"algorithm,omitempty"`
	TrafficAllocation int       `json:"traffic_allocation"` // percent, 0-100
	Accuracy          *float64  `json:"accuracy,omitempty"`
	CreatedAt         time.Time `json:"registered_at"`
}

// ModelPerformance is the analytics summary computed remotely by the
// model-performance edge function.
type ModelPerformance struct {
	ModelID          string  `json:"model_id"`
	Period           string  `json:"period"`
	TotalPredictions int     `json:"total_predictions"`
	Accuracy         float64 `json:"accuracy"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	F1               float64 `json:"f1_score"`
}

// --- Listing ---

// ListOptions narrows a table read. Zero-valued fields are omitted from JSON
// so that an empty ListOptions canonicalizes to {} for cache keys.
type ListOptions struct {
	Filters map[string]string `json:"filters,omitempty"` // column -> exact value
	OrderBy string            `json:"order_by,omitempty"`
	Desc    bool              `json:"desc,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}
