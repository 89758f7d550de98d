package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

// Signer computes and verifies HMAC-SHA256 signatures over content
// fingerprints. With an empty key the signer cannot verify
// independently and falls back to trust-on-presence.
type Signer struct {
	key      []byte
	signerID string
}

// NewSigner creates a Signer. An empty key disables verification.
func NewSigner(key, signerID string) *Signer {
	s := &Signer{signerID: signerID}
	if key != "" {
		s.key = []byte(key)
	}
	return s
}

// Enabled reports whether a signing key is configured.
func (s *Signer) Enabled() bool {
	return len(s.key) > 0
}

// SignerID returns the label recorded in provenance for
// pipeline-computed signatures.
func (s *Signer) SignerID() string {
	return s.signerID
}

// Sign returns the hex HMAC-SHA256 of fingerprint under the configured
// key, or "" when no key is configured.
func (s *Signer) Sign(fingerprint string) string {
	if !s.Enabled() {
		return ""
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(fingerprint))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the recomputed HMAC for
// fingerprint. Without a key, any non-empty signature counts as valid
// (trust-on-presence — see Attest).
func (s *Signer) Verify(fingerprint, signature string) bool {
	if signature == "" {
		return false
	}
	if !s.Enabled() {
		return true
	}
	return hmac.Equal([]byte(signature), []byte(s.Sign(fingerprint)))
}

// Attestation is the resolved signature state for one event.
type Attestation struct {
	// Signature is the stored signature: the caller's when supplied,
	// otherwise the pipeline-computed one (key configured only).
	Signature string
	// CallerSupplied reports whether the signature arrived with the
	// event. Admission decisions key off caller presence; a pipeline
	// self-signature never satisfies a require-signed policy.
	CallerSupplied bool
	// Valid reports signature validity under the current key
	// configuration.
	Valid bool
	// Algorithm is the provenance tag: hmac-sha256, external, or none.
	Algorithm string
	// Signer is the pipeline signer label, set only when the pipeline
	// computed the stored signature itself.
	Signer string
}

// Attest resolves the signature for an event fingerprint.
//
// Caller-supplied signatures take precedence and are verified against
// the recomputed HMAC when a key is configured. Without a key any
// non-empty caller signature is trusted on presence and tagged
// "external". An unsigned event is self-signed when a key is
// configured; the self-signature is valid by construction.
func (s *Signer) Attest(fingerprint, callerSignature string) Attestation {
	if callerSignature != "" {
		if s.Enabled() {
			return Attestation{
				Signature:      callerSignature,
				CallerSupplied: true,
				Valid:          s.Verify(fingerprint, callerSignature),
				Algorithm:      telemetry.AlgorithmHMACSHA256,
			}
		}
		return Attestation{
			Signature:      callerSignature,
			CallerSupplied: true,
			Valid:          true,
			Algorithm:      telemetry.AlgorithmExternal,
		}
	}

	if s.Enabled() {
		return Attestation{
			Signature: s.Sign(fingerprint),
			Valid:     true,
			Algorithm: telemetry.AlgorithmHMACSHA256,
			Signer:    s.signerID,
		}
	}

	return Attestation{Algorithm: telemetry.AlgorithmNone}
}
