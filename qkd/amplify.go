package qkd

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/crypto/blake2b"

	"github.com/thorium/qkd/bitarray"
)

// An AmplifyResult records the outcome of privacy amplification.
type AmplifyResult struct {
	// FinalKey is the compressed, secret key. Empty on underflow.
	FinalKey bitarray.Dense

	// HashFunctionID fingerprints the publicly agreed universal hash (the
	// Toeplitz diagonal seed), so both parties can confirm they applied the
	// same function.
	HashFunctionID string

	// OriginalLength and FinalLength are the input and output lengths in
	// bits. FinalLength == max(0, OriginalLength - ceil(leaked) - securityParameter).
	OriginalLength int
	FinalLength    int

	// CompressionRatio is FinalLength / OriginalLength.
	CompressionRatio float64

	// SecurityParameter is the extra margin of bits removed beyond the
	// measured leakage.
	SecurityParameter int
}

// Amplify compresses the corrected key with a randomly drawn Toeplitz hash
// over GF(2), sized to erase all publicly leaked information plus a security
// margin. If the leakage and margin consume the whole key it returns
// ErrPrivacyAmplificationUnderflow alongside a result describing the attempt.
func Amplify(corrected bitarray.Dense, leaked float64, securityParameter int, rng *rand.Rand) (AmplifyResult, error) {
	n := corrected.Size()
	outLen := n - int(math.Ceil(leaked)) - securityParameter
	if outLen < 0 {
		outLen = 0
	}
	r := AmplifyResult{
		OriginalLength:    n,
		FinalLength:       outLen,
		SecurityParameter: securityParameter,
	}
	if n > 0 {
		r.CompressionRatio = float64(outLen) / float64(n)
	}
	if outLen == 0 {
		return r, fmt.Errorf("%w: %d bits available, %.0f leaked + %d margin",
			ErrPrivacyAmplificationUnderflow, n, math.Ceil(leaked), securityParameter)
	}

	t := newToeplitz(outLen, n, rng)
	key, err := t.Mul(corrected)
	if err != nil {
		return r, err
	}
	sum := blake2b.Sum256(t.diags.Data())
	r.HashFunctionID = hex.EncodeToString(sum[:8])
	r.FinalKey = key
	return r, nil
}
