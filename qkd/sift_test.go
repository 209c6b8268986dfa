package qkd

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/thorium/qkd/bitarray"
)

func TestSift(t *testing.T) {
	// Bases match at rounds 0 and 3 only.
	tr := Transcript{
		AliceBits:  bitarray.NewDense([]byte{0b1010}, 4),
		AliceBases: bitarray.NewDense([]byte{0b0011}, 4),
		BobBits:    bitarray.NewDense([]byte{0b1110}, 4),
		BobBases:   bitarray.NewDense([]byte{0b0101}, 4),
	}
	s, err := Sift(tr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Length() != 2 {
		t.Fatalf("sifted length == %d, want 2", s.Length())
	}
	if s.InitialLength != 4 {
		t.Errorf("InitialLength == %d, want 4", s.InitialLength)
	}
	if s.Efficiency != 0.5 {
		t.Errorf("Efficiency == %v, want 0.5", s.Efficiency)
	}
	// Surviving rounds are 0 and 3, in order.
	if got, want := s.Alice.Get(0), tr.AliceBits.Get(0); got != want {
		t.Errorf("alice sifted bit 0 == %v, want %v", got, want)
	}
	if got, want := s.Alice.Get(1), tr.AliceBits.Get(3); got != want {
		t.Errorf("alice sifted bit 1 == %v, want %v", got, want)
	}
	if got, want := s.Bob.Get(1), tr.BobBits.Get(3); got != want {
		t.Errorf("bob sifted bit 1 == %v, want %v", got, want)
	}
}

func TestSiftLengthInvariant(t *testing.T) {
	tr := Transmit(2048, 0.05, false, rand.New(rand.NewSource(5)))
	s, err := Sift(tr, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches := 0
	for i := 0; i < tr.Rounds(); i++ {
		r := tr.Round(i)
		if r.AliceBasis == r.BobBasis {
			matches++
		}
	}
	if s.Length() != matches {
		t.Errorf("sifted length == %d, want %d basis matches", s.Length(), matches)
	}
}

func TestSiftInsufficientKeyMaterial(t *testing.T) {
	tcs := []struct {
		name    string
		tr      Transcript
		minBits int
	}{
		{
			name: "no matches",
			tr: Transcript{
				AliceBits:  bitarray.NewDense(nil, 2),
				AliceBases: bitarray.NewDense([]byte{0b00}, 2),
				BobBits:    bitarray.NewDense(nil, 2),
				BobBases:   bitarray.NewDense([]byte{0b11}, 2),
			},
			minBits: 1,
		}, {
			name: "below minimum",
			tr: Transcript{
				AliceBits:  bitarray.NewDense(nil, 2),
				AliceBases: bitarray.NewDense([]byte{0b00}, 2),
				BobBits:    bitarray.NewDense(nil, 2),
				BobBases:   bitarray.NewDense([]byte{0b00}, 2),
			},
			minBits: 3,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Sift(tc.tr, tc.minBits)
			if !errors.Is(err, ErrInsufficientKeyMaterial) {
				t.Errorf("Sift() error == %v, want ErrInsufficientKeyMaterial", err)
			}
		})
	}
}
