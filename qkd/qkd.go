// Package qkd simulates BB84 quantum key distribution with classical
// post-processing: basis sifting, statistical eavesdrop detection,
// cascade-style error reconciliation, and privacy amplification, composed
// into a single sequential session producing one pass/fail result.
package qkd

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Defaults applied by Run for zero-valued optional Config fields.
var (
	DefaultSampleFraction = 0.25
	DefaultMinSiftedBits  = 16
	DefaultBlockSchedule  = []int{4, 8, 16, 32}
	DefaultMaxPasses      = 8
)

// A Config packages together the parameters of one QKD session. QBERThreshold
// has no reasonable universal default and must be set explicitly; published
// deployments range from ~0.11 conservative floors up to 0.15.
type Config struct {
	// InitialQubits is the number of qubit rounds to transmit. Required.
	InitialQubits int

	// NoiseRate is the per-bit flip probability modeling channel noise, in
	// [0, 1].
	NoiseRate float64

	// Eavesdropper places an intercept-resend attacker on the channel.
	Eavesdropper bool

	// SampleFraction is the fraction of the sifted key revealed for QBER
	// estimation. Defaults to DefaultSampleFraction.
	SampleFraction float64

	// QBERThreshold is the sampled error rate above which the session is
	// treated as compromised. Required; must be in (0, 1).
	QBERThreshold float64

	// SecurityParameter is the extra margin of bits removed during privacy
	// amplification beyond the measured leakage. Must be non-negative.
	SecurityParameter int

	// MinSiftedBits is the minimum usable sifted key length. Defaults to
	// DefaultMinSiftedBits.
	MinSiftedBits int

	// BlockSchedule is the per-pass cascade block size schedule; the last
	// entry is reused for any remaining passes. Defaults to
	// DefaultBlockSchedule.
	BlockSchedule []int

	// MaxPasses bounds the number of cascade passes. Defaults to
	// DefaultMaxPasses.
	MaxPasses int

	// SkipReconciliation disables error correction, passing the sampled key
	// straight to privacy amplification. Only sensible on noiseless channels.
	SkipReconciliation bool

	// Seed fixes the session's randomness, making the whole run byte-for-byte
	// reproducible. When nil a fresh seed is drawn and recorded in the
	// Result.
	Seed *int64

	// Logger receives per-stage diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger
}

// Validate reports whether the config describes a runnable session.
func (c Config) Validate() error {
	if c.InitialQubits <= 0 {
		return fmt.Errorf("InitialQubits must be positive, got %d", c.InitialQubits)
	}
	if c.NoiseRate < 0 || c.NoiseRate > 1 {
		return fmt.Errorf("NoiseRate must be in [0, 1], got %g", c.NoiseRate)
	}
	if c.SampleFraction < 0 || c.SampleFraction > 1 {
		return fmt.Errorf("SampleFraction must be in [0, 1], got %g", c.SampleFraction)
	}
	if c.QBERThreshold <= 0 || c.QBERThreshold >= 1 {
		return errors.New("QBERThreshold is required and must be in (0, 1)")
	}
	if c.SecurityParameter < 0 {
		return fmt.Errorf("SecurityParameter must be non-negative, got %d", c.SecurityParameter)
	}
	for _, b := range c.BlockSchedule {
		if b < 2 {
			return fmt.Errorf("BlockSchedule entries must be at least 2, got %d", b)
		}
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("MaxPasses must be non-negative, got %d", c.MaxPasses)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.SampleFraction == 0 {
		c.SampleFraction = DefaultSampleFraction
	}
	if c.MinSiftedBits == 0 {
		c.MinSiftedBits = DefaultMinSiftedBits
	}
	if len(c.BlockSchedule) == 0 {
		c.BlockSchedule = DefaultBlockSchedule
	}
	if c.MaxPasses == 0 {
		c.MaxPasses = DefaultMaxPasses
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
