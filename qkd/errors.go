package qkd

import "errors"

// Sentinel errors for errors.Is() checks. Every session failure recorded in a
// Result.Err wraps exactly one of these.
var (
	// ErrInsufficientKeyMaterial is returned when the sifted key is empty or
	// below the configured minimum after basis reconciliation.
	ErrInsufficientKeyMaterial = errors.New("insufficient key material after sifting")

	// ErrEavesdropDetected is returned when the sampled QBER exceeds the
	// configured threshold. The channel must be treated as compromised and the
	// session aborted before reconciliation.
	ErrEavesdropDetected = errors.New("eavesdropper detected: sampled QBER exceeds threshold")

	// ErrReconciliationFailed is returned when residual block mismatches
	// remain after the maximum number of cascade passes.
	ErrReconciliationFailed = errors.New("reconciliation failed: residual errors after max passes")

	// ErrPrivacyAmplificationUnderflow is returned when the information leaked
	// plus the security margin meets or exceeds the corrected key length, so
	// no usable key can be extracted.
	ErrPrivacyAmplificationUnderflow = errors.New("privacy amplification underflow: leakage exceeds key length")
)
