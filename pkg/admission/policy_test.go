package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencode-ops/eventgate/pkg/signing"
)

func TestEvaluate_Totality(t *testing.T) {
	modes := []signing.Mode{
		signing.ModeOff,
		signing.ModeAllowUnsigned,
		signing.ModeRequireSigned,
		signing.ModeRequireValidSignature,
	}
	attestations := []signing.Attestation{
		{},                                    // unsigned, no key
		{Signature: "s", Valid: true},         // self-signed by pipeline
		{Signature: "s", CallerSupplied: true, Valid: true},
		{Signature: "s", CallerSupplied: true, Valid: false},
	}

	for _, mode := range modes {
		ev := NewEvaluator(mode)
		for _, att := range attestations {
			v := ev.Evaluate(att)
			if v.Accepted {
				assert.Empty(t, v.Reason, "accepted verdict must carry no reason (mode %s)", mode)
			} else {
				assert.NotEmpty(t, v.Reason, "rejected verdict must carry a reason (mode %s)", mode)
			}
		}
	}
}

func TestEvaluate_OffAndAllowUnsignedAcceptEverything(t *testing.T) {
	for _, mode := range []signing.Mode{signing.ModeOff, signing.ModeAllowUnsigned} {
		ev := NewEvaluator(mode)
		assert.True(t, ev.Evaluate(signing.Attestation{}).Accepted)
		assert.True(t, ev.Evaluate(signing.Attestation{CallerSupplied: true, Valid: false}).Accepted)
	}
}

func TestEvaluate_RequireSigned(t *testing.T) {
	ev := NewEvaluator(signing.ModeRequireSigned)

	v := ev.Evaluate(signing.Attestation{})
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonUnsigned, v.Reason)

	// Presence is enough, validity not required.
	assert.True(t, ev.Evaluate(signing.Attestation{CallerSupplied: true, Valid: false}).Accepted)
}

func TestEvaluate_RequireValidSignature(t *testing.T) {
	ev := NewEvaluator(signing.ModeRequireValidSignature)

	v := ev.Evaluate(signing.Attestation{})
	assert.Equal(t, ReasonUnsigned, v.Reason)

	v = ev.Evaluate(signing.Attestation{CallerSupplied: true, Valid: false})
	assert.Equal(t, ReasonInvalidSignature, v.Reason)

	assert.True(t, ev.Evaluate(signing.Attestation{CallerSupplied: true, Valid: true}).Accepted)
}

func TestEvaluate_SelfSignatureDoesNotSatisfyPresence(t *testing.T) {
	// A pipeline-computed signature is valid by construction but was
	// not supplied by the caller, so signature-requiring modes still
	// reject the event as unsigned.
	att := signing.Attestation{Signature: "self", Valid: true}

	v := NewEvaluator(signing.ModeRequireSigned).Evaluate(att)
	assert.Equal(t, ReasonUnsigned, v.Reason)

	v = NewEvaluator(signing.ModeRequireValidSignature).Evaluate(att)
	assert.Equal(t, ReasonUnsigned, v.Reason)
}
