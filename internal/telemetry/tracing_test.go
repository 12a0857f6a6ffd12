package telemetry

import (
	"strings"
	"testing"
)

// SetupTracing is not unit-tested because it requires a gRPC connection
// to an OTLP collector.

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 2.5, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: -1, want: "AlwaysOffSampler"},
		{rate: 0.25, want: "ParentBased"},
	}
	for _, tt := range tests {
		if got := Sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Sampler(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}
