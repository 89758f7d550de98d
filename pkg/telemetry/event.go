// Package telemetry defines the event record accepted by the admission
// pipeline: the wire-level Event, the hash-relevant Envelope subset, and
// the pipeline-attached Provenance.
package telemetry

// Event is one telemetry record from an agent or orchestration run.
// Events are normalized once at ingress and immutable afterwards except
// for the attached Provenance.
type Event struct {
	Timestamp         string  `json:"timestamp"`
	TraceID           string  `json:"trace_id,omitempty"`
	SpanID            string  `json:"span_id,omitempty"`
	ParentSpanID      string  `json:"parent_span_id,omitempty"`
	Model             string  `json:"model,omitempty"`
	Skill             string  `json:"skill,omitempty"`
	Tool              string  `json:"tool,omitempty"`
	InputTokens       int64   `json:"input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	IterationIndex    int64   `json:"iteration_index"`
	TerminationReason string  `json:"termination_reason,omitempty"`
	LatencyMS         float64 `json:"latency_ms,omitempty"`

	Provenance *Provenance `json:"provenance,omitempty"`
}

// Envelope is the strict subset of Event fields that participates in
// fingerprinting. Provenance is deliberately excluded so that attaching
// pipeline metadata never changes an event's identity hash.
type Envelope struct {
	Timestamp         string  `json:"timestamp"`
	TraceID           string  `json:"trace_id"`
	SpanID            string  `json:"span_id"`
	ParentSpanID      string  `json:"parent_span_id"`
	Model             string  `json:"model"`
	Skill             string  `json:"skill"`
	Tool              string  `json:"tool"`
	InputTokens       int64   `json:"input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	IterationIndex    int64   `json:"iteration_index"`
	TerminationReason string  `json:"termination_reason"`
	LatencyMS         float64 `json:"latency_ms"`
}

// Envelope returns the hash-relevant projection of the event.
func (e Event) Envelope() Envelope {
	return Envelope{
		Timestamp:         e.Timestamp,
		TraceID:           e.TraceID,
		SpanID:            e.SpanID,
		ParentSpanID:      e.ParentSpanID,
		Model:             e.Model,
		Skill:             e.Skill,
		Tool:              e.Tool,
		InputTokens:       e.InputTokens,
		OutputTokens:      e.OutputTokens,
		TotalTokens:       e.TotalTokens,
		IterationIndex:    e.IterationIndex,
		TerminationReason: e.TerminationReason,
		LatencyMS:         e.LatencyMS,
	}
}

// Signing algorithm tags recorded in Provenance.
const (
	AlgorithmHMACSHA256 = "hmac-sha256"
	AlgorithmExternal   = "external"
	AlgorithmNone       = "none"
)

// Provenance is attached by the pipeline and never trusted as supplied
// by the caller.
type Provenance struct {
	Source           string `json:"source"`
	EventHash        string `json:"event_hash"`
	Signature        string `json:"signature,omitempty"`
	SignatureValid   bool   `json:"signature_valid"`
	SigningAlgorithm string `json:"signing_algorithm"`
	ReceivedAt       string `json:"received_at"`
	Signer           string `json:"signer,omitempty"`
}
