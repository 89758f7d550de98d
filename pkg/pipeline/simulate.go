package pipeline

import (
	"github.com/opencode-ops/eventgate/pkg/admission"
	"github.com/opencode-ops/eventgate/pkg/signing"
	"github.com/opencode-ops/eventgate/pkg/stats"
	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// Default latency thresholds for simulation pass/fail.
const (
	DefaultMaxP95LatencyMS = 2200
	DefaultMaxP99LatencyMS = 3500
)

// maxSampleRejections caps the per-index rejection diagnostics.
const maxSampleRejections = 10

// SimulationPolicy is the candidate policy being dry-run.
type SimulationPolicy struct {
	SigningMode       string   `json:"signing_mode"`
	ReplaySeedEnabled *bool    `json:"replay_seed_enabled"`
	RequireTraceIDs   bool     `json:"require_trace_ids"`
	MinimumFidelity   string   `json:"minimum_fidelity"`
	MaxP95LatencyMS   *float64 `json:"max_p95_latency_ms"`
	MaxP99LatencyMS   *float64 `json:"max_p99_latency_ms"`
}

// SimulationRequest is the decoded body of POST /policy-simulate.
type SimulationRequest struct {
	Events []map[string]any  `json:"events"`
	Policy *SimulationPolicy `json:"policy"`
}

// SimulationSummary aggregates acceptance counts.
type SimulationSummary struct {
	TotalEvents     int     `json:"total_events"`
	Accepted        int     `json:"accepted"`
	Rejected        int     `json:"rejected"`
	AcceptanceRatio float64 `json:"acceptance_ratio"`
}

// SimulatedProvenance reports signature coverage over the batch.
type SimulatedProvenance struct {
	SigningEnabled   bool    `json:"signing_enabled"`
	SignedRatio      float64 `json:"signed_ratio"`
	ValidSignedRatio float64 `json:"valid_signed_ratio"`
}

// FidelityProjection compares projected batch fidelity against the
// caller's minimum tier.
type FidelityProjection struct {
	Projected stats.Fidelity `json:"projected"`
	Minimum   stats.Fidelity `json:"minimum"`
	Pass      bool           `json:"pass"`
}

// LatencyProjection reports nearest-rank percentiles over the latency
// samples of accepted events, compared against the thresholds.
type LatencyProjection struct {
	P50MS    float64 `json:"p50_ms"`
	P90MS    float64 `json:"p90_ms"`
	P95MS    float64 `json:"p95_ms"`
	P99MS    float64 `json:"p99_ms"`
	MaxP95MS float64 `json:"max_p95_ms"`
	MaxP99MS float64 `json:"max_p99_ms"`
	Samples  int     `json:"samples"`
	Pass     bool    `json:"pass"`
}

// RiskSummary counts currently-accepted events that would flip to
// rejected if the policy were tightened one notch. Events the candidate
// policy already rejects are not re-counted.
type RiskSummary struct {
	WouldRejectRequireSigned         int  `json:"would_reject_require_signed"`
	WouldRejectRequireValidSignature int  `json:"would_reject_require_valid_signature"`
	ReplaySeedEnabled                bool `json:"replay_seed_enabled"`
}

// SampleRejection is one per-index rejection reason, for diagnostics.
type SampleRejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// SimulationReport is the full dry-run projection. Never persisted.
type SimulationReport struct {
	SigningMode        signing.Mode        `json:"signing_mode"`
	Summary            SimulationSummary   `json:"summary"`
	RejectionBreakdown map[string]int      `json:"rejection_breakdown"`
	Provenance         SimulatedProvenance `json:"provenance"`
	Fidelity           FidelityProjection  `json:"fidelity_projection"`
	Latency            LatencyProjection   `json:"latency_projection"`
	Risk               RiskSummary         `json:"risk_summary"`
	SampleRejections   []SampleRejection   `json:"sample_rejections"`
}

// Simulate dry-runs a candidate policy over a batch. It runs the same
// per-event steps as Ingest but never touches the store.
func (p *Pipeline) Simulate(req SimulationRequest) (*SimulationReport, error) {
	if len(req.Events) == 0 {
		return nil, ErrNoEventsForSimulation
	}

	policy := req.Policy
	if policy == nil {
		policy = &SimulationPolicy{}
	}

	mode := p.resolveMode(policy.SigningMode)
	evaluator := admission.NewEvaluator(mode)
	now := p.clock()

	accepted := make([]telemetry.Event, 0, len(req.Events))
	breakdown := make(map[string]int)
	samples := make([]SampleRejection, 0, maxSampleRejections)
	var latencies []float64
	signed, validSigned := 0, 0
	acceptedSigned, acceptedValidSigned := 0, 0

	for i, raw := range req.Events {
		res, err := p.evaluate(raw, evaluator, policy.RequireTraceIDs, now)
		if err != nil {
			return nil, err
		}

		if res.attestation.CallerSupplied {
			signed++
			if res.attestation.Valid {
				validSigned++
			}
		}

		if !res.verdict.Accepted {
			breakdown[string(res.verdict.Reason)]++
			if len(samples) < maxSampleRejections {
				samples = append(samples, SampleRejection{Index: i, Reason: string(res.verdict.Reason)})
			}
			continue
		}

		if res.attestation.CallerSupplied {
			acceptedSigned++
			if res.attestation.Valid {
				acceptedValidSigned++
			}
		}

		accepted = append(accepted, res.event)
		if res.event.LatencyMS > 0 {
			latencies = append(latencies, res.event.LatencyMS)
		}
	}

	total := len(req.Events)

	replaySeed := p.replaySeedEnabled
	if policy.ReplaySeedEnabled != nil {
		replaySeed = *policy.ReplaySeedEnabled
	}

	report := &SimulationReport{
		SigningMode: mode,
		Summary: SimulationSummary{
			TotalEvents:     total,
			Accepted:        len(accepted),
			Rejected:        total - len(accepted),
			AcceptanceRatio: float64(len(accepted)) / float64(total),
		},
		RejectionBreakdown: breakdown,
		Provenance: SimulatedProvenance{
			SigningEnabled:   p.signer.Enabled(),
			SignedRatio:      float64(signed) / float64(total),
			ValidSignedRatio: float64(validSigned) / float64(total),
		},
		Fidelity: projectFidelity(accepted, policy.MinimumFidelity),
		Latency:  projectLatency(latencies, policy),
		Risk: RiskSummary{
			WouldRejectRequireSigned:         len(accepted) - acceptedSigned,
			WouldRejectRequireValidSignature: len(accepted) - acceptedValidSigned,
			ReplaySeedEnabled:                replaySeed,
		},
		SampleRejections: samples,
	}

	return report, nil
}

func projectFidelity(accepted []telemetry.Event, minimum string) FidelityProjection {
	min, ok := stats.ParseFidelity(minimum)
	if !ok {
		min = stats.FidelityDemo
	}
	projected := stats.EstimateFidelity(accepted)
	return FidelityProjection{
		Projected: projected,
		Minimum:   min,
		Pass:      projected.AtLeast(min),
	}
}

func projectLatency(latencies []float64, policy *SimulationPolicy) LatencyProjection {
	maxP95 := float64(DefaultMaxP95LatencyMS)
	if policy.MaxP95LatencyMS != nil {
		maxP95 = *policy.MaxP95LatencyMS
	}
	maxP99 := float64(DefaultMaxP99LatencyMS)
	if policy.MaxP99LatencyMS != nil {
		maxP99 = *policy.MaxP99LatencyMS
	}

	proj := LatencyProjection{
		P50MS:    stats.Percentile(latencies, 50),
		P90MS:    stats.Percentile(latencies, 90),
		P95MS:    stats.Percentile(latencies, 95),
		P99MS:    stats.Percentile(latencies, 99),
		MaxP95MS: maxP95,
		MaxP99MS: maxP99,
		Samples:  len(latencies),
		// Vacuously true without samples.
		Pass: true,
	}
	if len(latencies) > 0 {
		proj.Pass = proj.P95MS <= maxP95 && proj.P99MS <= maxP99
	}
	return proj
}
