// Package signing implements event signature computation and
// verification (HMAC-SHA256 over the content fingerprint) and the
// signing-mode vocabulary used by the admission policy.
package signing

// Mode is the process-wide admission/signing mode.
type Mode string

const (
	// ModeOff disables signature checks entirely.
	ModeOff Mode = "off"
	// ModeAllowUnsigned accepts every event regardless of signature.
	ModeAllowUnsigned Mode = "allow-unsigned"
	// ModeRequireSigned accepts only events carrying a signature;
	// validity is not required.
	ModeRequireSigned Mode = "require-signed"
	// ModeRequireValidSignature accepts only events whose signature is
	// present and verifies against the recomputed value.
	ModeRequireValidSignature Mode = "require-valid-signature"
)

// ParseMode returns the Mode for s, or false when s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeOff, ModeAllowUnsigned, ModeRequireSigned, ModeRequireValidSignature:
		return Mode(s), true
	default:
		return "", false
	}
}

// ResolveMode picks the effective mode for a request: the explicit
// per-request value wins when valid, then the environment override,
// then the environment-dependent default (require-valid-signature in
// production, allow-unsigned otherwise).
func ResolveMode(explicit, envOverride string, production bool) Mode {
	if m, ok := ParseMode(explicit); ok {
		return m
	}
	if m, ok := ParseMode(envOverride); ok {
		return m
	}
	if production {
		return ModeRequireValidSignature
	}
	return ModeAllowUnsigned
}
