package pipeline

import (
	"fmt"
	"time"

	"github.com/opencode-ops/eventgate/pkg/admission"
	"github.com/opencode-ops/eventgate/pkg/signing"
	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// SourceUnknown is recorded when the caller supplies no source header.
const SourceUnknown = "unknown"

// IngestRequest is the decoded body of POST /events.
type IngestRequest struct {
	Events          []map[string]any `json:"events"`
	Replace         bool             `json:"replace"`
	SigningMode     string           `json:"signing_mode"`
	RequireTraceIDs bool             `json:"require_trace_ids"`
}

// ProvenanceSummary reports batch-level signature statistics.
type ProvenanceSummary struct {
	SigningEnabled    bool           `json:"signing_enabled"`
	SignedEvents      int            `json:"signed_events"`
	ValidSignedEvents int            `json:"valid_signed_events"`
	Diagnostics       map[string]int `json:"diagnostics"`
}

// IngestResult is the success response of an ingest run.
type IngestResult struct {
	Accepted    int               `json:"accepted"`
	Rejected    int               `json:"rejected"`
	TotalEvents int               `json:"total_events"`
	SigningMode signing.Mode      `json:"signing_mode"`
	StoreSize   int               `json:"store_size"`
	Provenance  ProvenanceSummary `json:"provenance"`
}

// Ingest admits a batch of raw events under the resolved signing mode
// and persists the accepted ones. The store is untouched when the batch
// is empty or when policy rejects every event.
func (p *Pipeline) Ingest(source string, req IngestRequest) (*IngestResult, error) {
	if len(req.Events) == 0 {
		return nil, ErrNoEvents
	}
	if source == "" {
		source = SourceUnknown
	}

	mode := p.resolveMode(req.SigningMode)
	evaluator := admission.NewEvaluator(mode)
	now := p.clock()
	receivedAt := now.UTC().Format(time.RFC3339Nano)

	accepted := make([]telemetry.Event, 0, len(req.Events))
	diagnostics := make(map[string]int)
	signed, validSigned := 0, 0

	for _, raw := range req.Events {
		res, err := p.evaluate(raw, evaluator, req.RequireTraceIDs, now)
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
			diagnostics[string(res.verdict.Reason)]++
			continue
		}

		ev := res.event
		ev.Provenance = &telemetry.Provenance{
			Source:           source,
			EventHash:        res.fingerprint,
			Signature:        res.attestation.Signature,
			SignatureValid:   res.attestation.Valid,
			SigningAlgorithm: res.attestation.Algorithm,
			ReceivedAt:       receivedAt,
			Signer:           res.attestation.Signer,
		}
		accepted = append(accepted, ev)
	}

	if len(accepted) == 0 {
		return nil, &PolicyRejectionError{Diagnostics: diagnostics}
	}

	var size int
	var err error
	if req.Replace {
		size, err = p.store.Replace(accepted)
	} else {
		size, err = p.store.Append(accepted)
	}
	if err != nil {
		return nil, fmt.Errorf("persist accepted events: %w", err)
	}

	return &IngestResult{
		Accepted:    len(accepted),
		Rejected:    len(req.Events) - len(accepted),
		TotalEvents: len(req.Events),
		SigningMode: mode,
		StoreSize:   size,
		Provenance: ProvenanceSummary{
			SigningEnabled:    p.signer.Enabled(),
			SignedEvents:      signed,
			ValidSignedEvents: validSigned,
			Diagnostics:       diagnostics,
		},
	}, nil
}
