package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

func TestPercentile_Empty(t *testing.T) {
	for _, p := range []float64{0, 50, 95, 99, 100} {
		assert.Zero(t, Percentile(nil, p))
	}
}

func TestPercentile_SingleSample(t *testing.T) {
	for _, p := range []float64{0, 50, 95, 100} {
		assert.Equal(t, 42.0, Percentile([]float64{42}, p))
	}
}

func TestPercentile_NearestRank(t *testing.T) {
	// 1..10 unsorted; index = floor(p/100 * 9)
	samples := []float64{7, 3, 10, 1, 9, 5, 2, 8, 4, 6}

	assert.Equal(t, 1.0, Percentile(samples, 0))
	assert.Equal(t, 5.0, Percentile(samples, 50)) // floor(4.5) = idx 4
	assert.Equal(t, 9.0, Percentile(samples, 90)) // floor(8.1) = idx 8
	assert.Equal(t, 9.0, Percentile(samples, 95)) // floor(8.55) = idx 8
	assert.Equal(t, 10.0, Percentile(samples, 100))
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	samples := []float64{3, 1, 2}
	Percentile(samples, 50)
	assert.Equal(t, []float64{3, 1, 2}, samples)
}

func TestEstimateFidelity_Empty(t *testing.T) {
	assert.Equal(t, FidelityDemo, EstimateFidelity(nil))
}

func TestEstimateFidelity_Live(t *testing.T) {
	events := []telemetry.Event{
		{TraceID: "a", TotalTokens: 10},
		{TraceID: "b", TotalTokens: 1},
	}
	assert.Equal(t, FidelityLive, EstimateFidelity(events))
}

func TestEstimateFidelity_Degraded(t *testing.T) {
	// Two full-signal events plus one with neither signal.
	events := []telemetry.Event{
		{TraceID: "a", TotalTokens: 10},
		{TraceID: "b", TotalTokens: 5},
		{},
	}
	assert.Equal(t, FidelityDegraded, EstimateFidelity(events))

	// A single event with only one of the two signals.
	assert.Equal(t, FidelityDegraded, EstimateFidelity([]telemetry.Event{{TraceID: "a"}}))
	assert.Equal(t, FidelityDegraded, EstimateFidelity([]telemetry.Event{{TotalTokens: 3}}))
}

func TestEstimateFidelity_Demo(t *testing.T) {
	events := []telemetry.Event{{Model: "m"}, {Skill: "s"}}
	assert.Equal(t, FidelityDemo, EstimateFidelity(events))
}

func TestFidelity_Ordering(t *testing.T) {
	assert.True(t, FidelityLive.AtLeast(FidelityDegraded))
	assert.True(t, FidelityLive.AtLeast(FidelityLive))
	assert.False(t, FidelityDegraded.AtLeast(FidelityLive))
	assert.True(t, FidelityDegraded.AtLeast(FidelityDemo))
	assert.False(t, FidelityDemo.AtLeast(FidelityDegraded))
}

func TestParseFidelity(t *testing.T) {
	f, ok := ParseFidelity("live")
	assert.True(t, ok)
	assert.Equal(t, FidelityLive, f)

	_, ok = ParseFidelity("ultra")
	assert.False(t, ok)
}
