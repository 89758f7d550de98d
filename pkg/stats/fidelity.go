package stats

import "github.com/opencode-ops/eventgate/pkg/telemetry"

// Fidelity is a coarse classification of how trustworthy a telemetry
// batch is, ordered demo < degraded < live.
type Fidelity string

const (
	FidelityDemo     Fidelity = "demo"
	FidelityDegraded Fidelity = "degraded"
	FidelityLive     Fidelity = "live"
)

var fidelityRank = map[Fidelity]int{
	FidelityDemo:     0,
	FidelityDegraded: 1,
	FidelityLive:     2,
}

// ParseFidelity returns the Fidelity for s, or false for unknown tiers.
func ParseFidelity(s string) (Fidelity, bool) {
	f := Fidelity(s)
	_, ok := fidelityRank[f]
	return f, ok
}

// AtLeast reports whether f meets or exceeds min.
func (f Fidelity) AtLeast(min Fidelity) bool {
	return fidelityRank[f] >= fidelityRank[min]
}

// EstimateFidelity classifies a batch from its token and trace
// coverage: live when every event carries both non-zero total tokens
// and a trace id, demo when the batch is empty or no event carries
// either signal, degraded in between. Independent of policy mode.
func EstimateFidelity(events []telemetry.Event) Fidelity {
	if len(events) == 0 {
		return FidelityDemo
	}

	allBoth := true
	anySignal := false
	for _, ev := range events {
		hasTokens := ev.TotalTokens > 0
		hasTrace := ev.TraceID != ""
		if hasTokens || hasTrace {
			anySignal = true
		}
		if !hasTokens || !hasTrace {
			allBoth = false
		}
	}

	switch {
	case allBoth:
		return FidelityLive
	case anySignal:
		return FidelityDegraded
	default:
		return FidelityDemo
	}
}
