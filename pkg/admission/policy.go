// Package admission decides, per event, whether the configured signing
// mode admits it. The evaluator is total: every event receives exactly
// one verdict, and rejection always carries a reason code.
package admission

import (
	"github.com/opencode-ops/eventgate/pkg/signing"
)

// Reason identifies why an event was rejected.
type Reason string

const (
	ReasonUnsigned         Reason = "unsigned_event"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonMissingTraceID   Reason = "missing_trace_id"
)

// Verdict is the admission decision for one event.
type Verdict struct {
	Accepted bool
	Reason   Reason
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(r Reason) Verdict {
	return Verdict{Reason: r}
}

// Evaluator applies one signing mode to event attestations. It holds no
// per-event state; evaluation order across a batch does not matter.
type Evaluator struct {
	Mode signing.Mode
}

// NewEvaluator creates an evaluator for mode.
func NewEvaluator(mode signing.Mode) Evaluator {
	return Evaluator{Mode: mode}
}

// Evaluate returns the verdict for an event given its resolved
// signature attestation. Only caller-supplied signatures satisfy
// signature-presence requirements; a pipeline self-signature does not.
func (e Evaluator) Evaluate(att signing.Attestation) Verdict {
	switch e.Mode {
	case signing.ModeRequireSigned:
		if !att.CallerSupplied {
			return reject(ReasonUnsigned)
		}
		return accept()
	case signing.ModeRequireValidSignature:
		if !att.CallerSupplied {
			return reject(ReasonUnsigned)
		}
		if !att.Valid {
			return reject(ReasonInvalidSignature)
		}
		return accept()
	default:
		// off and allow-unsigned admit everything; unknown modes are
		// normalized away by signing.ResolveMode before we get here.
		return accept()
	}
}
