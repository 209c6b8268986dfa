package qkd

import (
	"fmt"

	"github.com/thorium/qkd/bitarray"
)

// A SiftResult is a sifted key: the rounds where Alice's and Bob's basis
// choices agreed. Alice holds the noiseless reference string; Bob holds the
// measured string actually used as key material downstream.
type SiftResult struct {
	Alice bitarray.Dense
	Bob   bitarray.Dense

	// InitialLength is the number of qubit rounds sifting started from.
	InitialLength int

	// Efficiency is the fraction of rounds surviving the basis comparison.
	Efficiency float64
}

// Length returns the number of bits in the sifted key.
func (s SiftResult) Length() int {
	return s.Bob.Size()
}

// Sift publicly compares basis choices round by round and keeps only the
// rounds where they agree. It fails with ErrInsufficientKeyMaterial if fewer
// than minBits rounds survive; minBits values below one are treated as one,
// since the sampling stage needs something to check.
func Sift(t Transcript, minBits int) (SiftResult, error) {
	if minBits < 1 {
		minBits = 1
	}
	mask := t.AliceBases.XNor(t.BobBases)
	r := SiftResult{
		Alice:         t.AliceBits.Select(mask),
		Bob:           t.BobBits.Select(mask),
		InitialLength: t.Rounds(),
	}
	if r.InitialLength > 0 {
		r.Efficiency = float64(r.Length()) / float64(r.InitialLength)
	}
	if r.Length() < minBits {
		return r, fmt.Errorf("%w: %d sifted bits, need %d", ErrInsufficientKeyMaterial, r.Length(), minBits)
	}
	return r, nil
}
