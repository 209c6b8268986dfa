package qkd

import (
	"math/rand"

	"github.com/thorium/qkd/bitarray"
)

// A ReconcileResult records the outcome of cascade reconciliation between the
// reference key and a noisy copy.
type ReconcileResult struct {
	// Original is the noisy key as handed to the reconciler, i.e. the
	// post-sampling key. Its length is the session's pre-reconciliation final
	// key length.
	Original bitarray.Dense

	// Corrected is the reconciled copy. Correction only flips suspect bits;
	// len(Corrected) == len(Original) always.
	Corrected bitarray.Dense

	// ErrorsDetected counts blocks that triggered a bisection, across all
	// passes, including ones later fixed.
	ErrorsDetected int

	// ErrorsCorrected counts individual bit flips applied to the noisy copy.
	ErrorsCorrected int

	// InformationLeaked is the number of parity bits disclosed over the
	// public channel, across all passes and bisections.
	InformationLeaked float64

	// Passes is the number of cascade passes actually run.
	Passes int

	// Success reports whether some pass completed with zero mismatching
	// blocks before maxPasses ran out.
	Success bool
}

// Reconcile runs multi-pass block-parity cascade correction of noisy against
// reference. Each pass partitions a fresh random permutation of the index
// space into blocks of the scheduled size and compares block parities; a
// mismatched block is binary-bisected to locate and flip exactly one
// erroneous bit. Every parity comparison discloses one bit of information.
// Passes repeat, reusing the last scheduled block size once the schedule is
// exhausted, until a pass sees no mismatches or maxPasses is reached.
//
// Reconcile must be fed the post-sampling key, never the sifted key: bits
// revealed during eavesdrop sampling are already gone from the key material.
func Reconcile(reference, noisy bitarray.Dense, sched []int, maxPasses int, rng *rand.Rand) ReconcileResult {
	r := ReconcileResult{
		Original:  noisy,
		Corrected: noisy.Clone(),
	}
	n := noisy.Size()
	if n == 0 || len(sched) == 0 || maxPasses < 1 {
		r.Success = n == 0
		return r
	}

	for p := 0; p < maxPasses; p++ {
		size := sched[min(p, len(sched)-1)]
		if size < 2 {
			size = 2
		}
		perm := rng.Perm(n)
		mismatched := 0
		for start := 0; start < n; start += size {
			end := min(start+size, n)
			block := perm[start:end]
			r.InformationLeaked++
			if parityAt(reference, block) == parityAt(r.Corrected, block) {
				continue
			}
			mismatched++
			r.ErrorsDetected++
			r.Corrected.Flip(block[bisect(reference, r.Corrected, block, &r.InformationLeaked)])
			r.ErrorsCorrected++
		}
		r.Passes = p + 1
		if mismatched == 0 {
			r.Success = true
			break
		}
	}
	return r
}

// bisect locates the position within block of one bit on which reference and
// corrected disagree, given that their parities over block differ. Each
// sub-block parity comparison discloses one further bit, tallied into leaked.
func bisect(reference, corrected bitarray.Dense, block []int, leaked *float64) int {
	lo, hi := 0, len(block)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		*leaked++
		if parityAt(reference, block[lo:mid]) != parityAt(corrected, block[lo:mid]) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

func parityAt(d bitarray.Dense, idx []int) bool {
	parity := false
	for _, i := range idx {
		if d.Get(i) {
			parity = !parity
		}
	}
	return parity
}
