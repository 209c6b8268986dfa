package qkd

import (
	"errors"
	"math/rand"
	"testing"
)

func TestAmplify(t *testing.T) {
	rng := rand.New(rand.NewSource(53))
	key := randomKey(100, rng)

	r, err := Amplify(key, 10.2, 20, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.OriginalLength != 100 {
		t.Errorf("OriginalLength == %d, want 100", r.OriginalLength)
	}
	// 100 - ceil(10.2) - 20 == 69.
	if r.FinalLength != 69 {
		t.Errorf("FinalLength == %d, want 69", r.FinalLength)
	}
	if r.FinalKey.Size() != r.FinalLength {
		t.Errorf("FinalKey size %d != FinalLength %d", r.FinalKey.Size(), r.FinalLength)
	}
	if r.CompressionRatio != 0.69 {
		t.Errorf("CompressionRatio == %v, want 0.69", r.CompressionRatio)
	}
	if r.SecurityParameter != 20 {
		t.Errorf("SecurityParameter == %d, want 20", r.SecurityParameter)
	}
	if len(r.HashFunctionID) != 16 {
		t.Errorf("HashFunctionID == %q, want 16 hex chars", r.HashFunctionID)
	}
}

func TestAmplifyDeterministic(t *testing.T) {
	key := randomKey(80, rand.New(rand.NewSource(59)))
	a, err := Amplify(key, 5, 8, rand.New(rand.NewSource(61)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Amplify(key, 5, 8, rand.New(rand.NewSource(61)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.FinalKey.Equal(b.FinalKey) {
		t.Error("identical seeds produced different keys")
	}
	if a.HashFunctionID != b.HashFunctionID {
		t.Errorf("identical seeds produced different hash ids: %q != %q", a.HashFunctionID, b.HashFunctionID)
	}
}

func TestAmplifyUnderflow(t *testing.T) {
	tcs := []struct {
		name    string
		keyBits int
		leaked  float64
		secParm int
	}{
		{name: "exact consumption", keyBits: 10, leaked: 8, secParm: 2},
		{name: "over consumption", keyBits: 10, leaked: 64, secParm: 32},
		{name: "empty key", keyBits: 0, leaked: 0, secParm: 0},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(67))
			key := randomKey(tc.keyBits, rng)
			r, err := Amplify(key, tc.leaked, tc.secParm, rng)
			if !errors.Is(err, ErrPrivacyAmplificationUnderflow) {
				t.Fatalf("Amplify() error == %v, want ErrPrivacyAmplificationUnderflow", err)
			}
			if r.FinalLength != 0 {
				t.Errorf("FinalLength == %d, want 0", r.FinalLength)
			}
			if r.OriginalLength != tc.keyBits {
				t.Errorf("OriginalLength == %d, want %d", r.OriginalLength, tc.keyBits)
			}
			if r.FinalKey.Size() != 0 {
				t.Errorf("underflow produced %d key bits", r.FinalKey.Size())
			}
		})
	}
}
