package qkd

import (
	"math/rand"
	"testing"

	"github.com/thorium/qkd/bitarray"
)

func randomSiftResult(n int, rng *rand.Rand) SiftResult {
	buf := make([]byte, bitarray.BytesFor(n))
	rng.Read(buf)
	bits := bitarray.NewDense(buf, n)
	return SiftResult{Alice: bits, Bob: bits.Clone(), InitialLength: 2 * n, Efficiency: 0.5}
}

func TestDetectSampleInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	s := randomSiftResult(64, rng)
	check, alice, bob := Detect(s, 0.25, 0.11, rng)

	if check.SampleSize != 16 {
		t.Errorf("SampleSize == %d, want 16", check.SampleSize)
	}
	if len(check.SampleIndices) != check.SampleSize {
		t.Errorf("len(SampleIndices) == %d, want %d", len(check.SampleIndices), check.SampleSize)
	}
	seen := map[int]bool{}
	for _, idx := range check.SampleIndices {
		if idx < 0 || idx >= 64 {
			t.Errorf("sample index %d out of range [0, 64)", idx)
		}
		if seen[idx] {
			t.Errorf("sample index %d drawn twice", idx)
		}
		seen[idx] = true
	}
	if got, want := alice.Size(), 64-16; got != want {
		t.Errorf("len(final alice) == %d, want %d", got, want)
	}
	if got, want := bob.Size(), 64-16; got != want {
		t.Errorf("len(final bob) == %d, want %d", got, want)
	}
}

func TestDetectRemovalPreservesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	s := randomSiftResult(40, rng)
	check, _, bob := Detect(s, 0.3, 0.11, rng)

	sampled := map[int]bool{}
	for _, idx := range check.SampleIndices {
		sampled[idx] = true
	}
	var want bitarray.Dense
	for i := 0; i < s.Length(); i++ {
		if !sampled[i] {
			want.AppendBit(s.Bob.Get(i))
		}
	}
	if !bob.Equal(want) {
		t.Error("post-sampling key does not preserve order of surviving bits")
	}
}

func TestDetectErrorRate(t *testing.T) {
	tcs := []struct {
		name      string
		aliceBits byte
		bobBits   byte
		eRate     float64
		eDetected bool
	}{
		{name: "all agree", aliceBits: 0b1010, bobBits: 0b1010, eRate: 0, eDetected: false},
		{name: "all disagree", aliceBits: 0b0000, bobBits: 0b1111, eRate: 1, eDetected: true},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s := SiftResult{
				Alice: bitarray.NewDense([]byte{tc.aliceBits}, 4),
				Bob:   bitarray.NewDense([]byte{tc.bobBits}, 4),
			}
			check, _, _ := Detect(s, 1.0, 0.11, rand.New(rand.NewSource(1)))
			if check.SampleSize != 4 {
				t.Fatalf("SampleSize == %d, want 4", check.SampleSize)
			}
			if check.ErrorRate != tc.eRate {
				t.Errorf("ErrorRate == %v, want %v", check.ErrorRate, tc.eRate)
			}
			if check.Detected != tc.eDetected {
				t.Errorf("Detected == %v, want %v", check.Detected, tc.eDetected)
			}
		})
	}
}

func TestDetectEmptySample(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	s := randomSiftResult(32, rng)
	check, alice, bob := Detect(s, 0, 0.11, rng)
	if check.SampleSize != 0 {
		t.Errorf("SampleSize == %d, want 0", check.SampleSize)
	}
	if check.ErrorRate != 0 || check.Detected {
		t.Errorf("empty sample produced rate %v, detected %v", check.ErrorRate, check.Detected)
	}
	if alice.Size() != 32 || bob.Size() != 32 {
		t.Errorf("empty sample shrank the key: %d, %d", alice.Size(), bob.Size())
	}
}

func TestInterceptResendDetectionProbability(t *testing.T) {
	if got := InterceptResendDetectionProbability(0, 0.11); got != 0 {
		t.Errorf("detection probability with empty sample == %v, want 0", got)
	}
	p := InterceptResendDetectionProbability(512, 0.11)
	if p < 0.99 {
		t.Errorf("detection probability for 512-bit sample at 0.11 == %v, want > 0.99", p)
	}
	if lo := InterceptResendDetectionProbability(512, 0.3); lo >= p {
		t.Errorf("detection probability not decreasing in threshold: %v >= %v", lo, p)
	}
}
