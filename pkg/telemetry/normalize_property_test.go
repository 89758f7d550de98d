//go:build property
// +build property

package telemetry_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// Property: normalization is idempotent — re-normalizing the JSON form
// of a normalized event changes nothing, even with a later clock.
func TestNormalizeIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	properties.Property("normalize(normalize(e)) == normalize(e)", prop.ForAll(
		func(traceID string, inputTokens, outputTokens int64, latency float64) bool {
			raw := map[string]any{
				"trace_id":      traceID,
				"input_tokens":  float64(inputTokens),
				"output_tokens": float64(outputTokens),
				"latency_ms":    latency,
			}

			first := telemetry.Normalize(raw, now)

			b, err := json.Marshal(first)
			if err != nil {
				return false
			}
			var roundTrip map[string]any
			if err := json.Unmarshal(b, &roundTrip); err != nil {
				return false
			}

			second := telemetry.Normalize(roundTrip, now.Add(time.Hour))
			return first == second
		},
		gen.AlphaString(),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Float64Range(0, 1e9),
	))

	properties.TestingRun(t)
}
