package qkd

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/thorium/qkd/bitarray"
)

// A CheckResult records the outcome of statistical eavesdrop detection on a
// sifted key. It is created once per session and never mutated.
type CheckResult struct {
	// SampleIndices are the sifted-key positions publicly revealed for
	// comparison, sorted ascending. They are pairwise distinct and each lies
	// in [0, sifted length).
	SampleIndices []int

	// SampleSize is len(SampleIndices).
	SampleSize int

	// ErrorRate is the observed QBER over the sample, in [0, 1]. Zero when
	// the sample is empty.
	ErrorRate float64

	// Detected reports whether ErrorRate exceeded the configured threshold.
	Detected bool
}

// Detect draws a random sample without replacement from the sifted key,
// publicly compares Bob's sampled bits against Alice's reference, and flags
// detection when the observed error rate exceeds threshold. The sampled bits
// are deleted from both strings; the returned alice and bob keys preserve the
// relative order of the remainder and satisfy
// len(remainder) == sifted length - sample size exactly.
//
// Detect only flags; deciding to abort the session is the pipeline's job.
func Detect(s SiftResult, sampleFraction, threshold float64, rng *rand.Rand) (check CheckResult, alice, bob bitarray.Dense) {
	n := s.Length()
	k := int(math.Round(sampleFraction * float64(n)))
	if k > n {
		k = n
	}
	indices := rng.Perm(n)[:k]
	sort.Ints(indices)

	mismatches := 0
	for _, idx := range indices {
		if s.Alice.Get(idx) != s.Bob.Get(idx) {
			mismatches++
		}
	}
	check = CheckResult{
		SampleIndices: indices,
		SampleSize:    k,
	}
	if k > 0 {
		check.ErrorRate = float64(mismatches) / float64(k)
	}
	check.Detected = check.ErrorRate > threshold

	// Revealed bits are no longer secret; drop them from the key material.
	keep := bitarray.NewDense(nil, n).Not()
	for _, idx := range indices {
		keep.Flip(idx)
	}
	return check, s.Alice.Select(keep), s.Bob.Select(keep)
}

// InterceptResendDetectionProbability returns the probability that a sample
// of sampleSize bits taken against a full intercept-resend attack trips the
// given threshold. Such an attack disturbs each sampled bit independently
// with probability 1/4.
func InterceptResendDetectionProbability(sampleSize int, threshold float64) float64 {
	if sampleSize <= 0 {
		return 0
	}
	b := distuv.Binomial{N: float64(sampleSize), P: 0.25}
	// P[X/n > threshold] == 1 - P[X <= floor(threshold*n)].
	return 1 - b.CDF(math.Floor(threshold*float64(sampleSize)))
}
