package qkd

import (
	"math/rand"

	"github.com/thorium/qkd/bitarray"
)

// A Basis identifies one of the two conjugate measurement bases used by BB84.
type Basis uint8

const (
	// Rectilinear is the computational (0°/90°) basis.
	Rectilinear Basis = iota
	// Diagonal is the Hadamard (45°/135°) basis.
	Diagonal
)

// String implements fmt.Stringer.
func (b Basis) String() string {
	if b == Diagonal {
		return "diagonal"
	}
	return "rectilinear"
}

// A QubitRound records one round of quantum transmission: what Alice prepared
// and what Bob measured.
type QubitRound struct {
	AliceBit   bool
	AliceBasis Basis
	BobBit     bool
	BobBasis   Basis
}

// A Transcript holds the raw outcome of a quantum exchange as parallel bit
// arrays indexed by round. Bit i of AliceBits is the bit Alice sent in round
// i, and so on. A set basis bit means Diagonal.
type Transcript struct {
	AliceBits  bitarray.Dense
	AliceBases bitarray.Dense
	BobBits    bitarray.Dense
	BobBases   bitarray.Dense
}

// Rounds returns the number of qubit rounds in the transcript.
func (t Transcript) Rounds() int {
	return t.AliceBits.Size()
}

// Round returns the i-th round as a QubitRound value.
func (t Transcript) Round(i int) QubitRound {
	basis := func(set bool) Basis {
		if set {
			return Diagonal
		}
		return Rectilinear
	}
	return QubitRound{
		AliceBit:   t.AliceBits.Get(i),
		AliceBasis: basis(t.AliceBases.Get(i)),
		BobBit:     t.BobBits.Get(i),
		BobBasis:   basis(t.BobBases.Get(i)),
	}
}

// Transmit simulates n rounds of BB84 quantum transmission. Alice draws a
// uniform bit and basis per round. If eavesdropper is set, an intercept-resend
// attacker measures every qubit in an independently drawn basis and resends
// the post-measurement state. Bob measures in an independently drawn basis:
// on a basis match with the arriving state his outcome is deterministic,
// otherwise uniformly random. Finally each of Bob's outcomes is flipped
// independently with probability noiseRate.
//
// The channel is stateless per round; all randomness is drawn from rng in a
// fixed order so a fixed seed reproduces the transcript exactly.
func Transmit(n int, noiseRate float64, eavesdropper bool, rng *rand.Rand) Transcript {
	aliceBits := randomBits(n, rng)
	aliceBases := randomBits(n, rng)

	// The state arriving at Bob is Alice's unless Eve touched it.
	arrivingBits, arrivingBases := aliceBits, aliceBases
	if eavesdropper {
		eveBases := randomBits(n, rng)
		// Where Eve's basis mismatches Alice's, her measurement outcome is a
		// fair coin, i.e. Alice's bit flipped with probability one half.
		eveFlips := randomBits(n, rng).And(aliceBases.XOr(eveBases))
		arrivingBits = aliceBits.XOr(eveFlips)
		arrivingBases = eveBases
	}

	bobBases := randomBits(n, rng)
	bobFlips := randomBits(n, rng).And(arrivingBases.XOr(bobBases))
	bobBits := arrivingBits.XOr(bobFlips)

	if noiseRate > 0 {
		noise := bitarray.NewDense(nil, n)
		for i := 0; i < n; i++ {
			if rng.Float64() < noiseRate {
				noise.Flip(i)
			}
		}
		bobBits = bobBits.XOr(noise)
	}

	return Transcript{
		AliceBits:  aliceBits,
		AliceBases: aliceBases,
		BobBits:    bobBits,
		BobBases:   bobBases,
	}
}

func randomBits(n int, rng *rand.Rand) bitarray.Dense {
	buf := make([]byte, bitarray.BytesFor(n))
	rng.Read(buf)
	return bitarray.NewDense(buf, n)
}
