// Package pipeline composes normalization, fingerprinting, signature
// attestation, and admission policy into the two public operations of
// the admission-control subsystem: Ingest (stateful, persists accepted
// events) and Simulate (pure projection of a candidate policy).
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/opencode-ops/eventgate/pkg/admission"
	"github.com/opencode-ops/eventgate/pkg/canonicalize"
	"github.com/opencode-ops/eventgate/pkg/signing"
	"github.com/opencode-ops/eventgate/pkg/store"
	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

var (
	// ErrNoEvents is returned when an ingest batch is empty.
	ErrNoEvents = errors.New("no events submitted")
	// ErrNoEventsForSimulation is returned when a simulation batch is
	// empty.
	ErrNoEventsForSimulation = errors.New("no events submitted for simulation")
)

// PolicyRejectionError is returned when the signing policy rejects
// every event in an ingest batch. The store is not mutated.
type PolicyRejectionError struct {
	Diagnostics map[string]int
}

func (e *PolicyRejectionError) Error() string {
	return "no events accepted by signing policy"
}

// Config holds the resolved, boundary-provided pipeline configuration.
// The pipeline never reads the environment itself.
type Config struct {
	SigningKey        string
	SignerID          string
	DefaultMode       signing.Mode
	ReplaySeedEnabled bool
}

// Pipeline runs the admission-control steps. Per-event computation is
// pure; the only state is the event store, touched by Ingest alone.
type Pipeline struct {
	signer            *signing.Signer
	store             store.EventStore
	defaultMode       signing.Mode
	replaySeedEnabled bool
	clock             func() time.Time
}

// New creates a pipeline writing accepted events to st.
func New(cfg Config, st store.EventStore) *Pipeline {
	mode := cfg.DefaultMode
	if mode == "" {
		mode = signing.ModeAllowUnsigned
	}
	return &Pipeline{
		signer:            signing.NewSigner(cfg.SigningKey, cfg.SignerID),
		store:             st,
		defaultMode:       mode,
		replaySeedEnabled: cfg.ReplaySeedEnabled,
		clock:             time.Now,
	}
}

// WithClock overrides the receipt-time clock (tests).
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// SigningEnabled reports whether the pipeline holds a verification key.
func (p *Pipeline) SigningEnabled() bool {
	return p.signer.Enabled()
}

// resolveMode applies the per-request override when valid, else the
// process default (already environment-resolved at the boundary).
func (p *Pipeline) resolveMode(explicit string) signing.Mode {
	if m, ok := signing.ParseMode(explicit); ok {
		return m
	}
	return p.defaultMode
}

// evaluation is the outcome of the pure per-event steps shared by
// ingestion and simulation.
type evaluation struct {
	event       telemetry.Event
	fingerprint string
	attestation signing.Attestation
	verdict     admission.Verdict
}

// evaluate runs normalize → fingerprint → attest → trace-id constraint
// → admission policy for one raw record.
func (p *Pipeline) evaluate(raw map[string]any, evaluator admission.Evaluator, requireTraceIDs bool, now time.Time) (evaluation, error) {
	ev := telemetry.Normalize(raw, now)

	fingerprint, err := canonicalize.CanonicalHash(ev.Envelope())
	if err != nil {
		return evaluation{}, fmt.Errorf("fingerprint envelope: %w", err)
	}

	att := p.signer.Attest(fingerprint, telemetry.Signature(raw))

	// The trace-id constraint runs before the signing-policy check and
	// reports through its own diagnostics bucket.
	verdict := admission.Verdict{Accepted: true}
	if requireTraceIDs && ev.TraceID == "" {
		verdict = admission.Verdict{Reason: admission.ReasonMissingTraceID}
	} else {
		verdict = evaluator.Evaluate(att)
	}

	return evaluation{
		event:       ev,
		fingerprint: fingerprint,
		attestation: att,
		verdict:     verdict,
	}, nil
}
