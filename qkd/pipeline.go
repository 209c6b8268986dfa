package qkd

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	mrand "math/rand"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/thorium/qkd/bitarray"
)

// A State names the terminal state a session reached. All states are terminal
// after one pass; a caller wanting another attempt starts a fresh session.
type State string

const (
	StateSecured               State = "secured"
	StateInsufficientKey       State = "aborted_insufficient_key_material"
	StateEavesdropDetected     State = "aborted_eavesdrop_detected"
	StateReconciliationFailed  State = "aborted_reconciliation_failed"
	StateAmplificationUnderrun State = "aborted_amplification_underflow"
)

// A Result aggregates the per-stage diagnostics and final verdict of one QKD
// session. Run always returns a fully populated Result: stages after the
// aborting one carry their zero values with the responsible stage's
// diagnostics intact.
type Result struct {
	// Seed is the RNG seed the session actually used. Re-running with this
	// seed reproduces the Result byte for byte.
	Seed int64

	InitialQubits     int
	SiftedKeyLength   int
	SiftingEfficiency float64

	Check          CheckResult
	Reconciliation ReconcileResult
	Amplification  AmplifyResult

	// FinalKey is the secured key material; empty unless State is
	// StateSecured.
	FinalKey       bitarray.Dense
	FinalKeyLength int

	// KeyFingerprint is a blake2b digest of the final key, for logging and
	// cross-checking without revealing key material at full length.
	KeyFingerprint string

	// EndToEndEfficiency is FinalKeyLength / InitialQubits.
	EndToEndEfficiency float64

	// SecurityLevel summarizes the session outcome: "compromised" when an
	// eavesdropper was detected, "none" when no key was produced for any
	// other reason, otherwise "2^-k" for security parameter k.
	SecurityLevel string

	State   State
	Err     error
	Success bool
}

// TotalInformationLeaked returns the bits of information disclosed on the
// public channel that privacy amplification must erase. Sampled bits are
// deleted rather than retained, so only reconciliation parities count.
func (r Result) TotalInformationLeaked() float64 {
	return r.Reconciliation.InformationLeaked
}

// Run executes one complete QKD session: transmission, sifting, eavesdrop
// sampling, reconciliation, and privacy amplification, in strict sequence.
// The returned error is non-nil only for an invalid Config; session failures
// are reported through Result.Err and Result.Success so callers always get
// the full per-stage diagnostics explaining why a session failed.
func Run(cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.withDefaults()
	log := cfg.Logger

	seed := drawSeed(cfg.Seed)
	rng := mrand.New(mrand.NewSource(seed))
	res := Result{
		Seed:          seed,
		InitialQubits: cfg.InitialQubits,
		SecurityLevel: "none",
	}

	transcript := Transmit(cfg.InitialQubits, cfg.NoiseRate, cfg.Eavesdropper, rng)
	log.Debug("transmitted qubits",
		zap.Int("rounds", transcript.Rounds()),
		zap.Float64("noiseRate", cfg.NoiseRate),
		zap.Bool("eavesdropper", cfg.Eavesdropper))

	sifted, err := Sift(transcript, cfg.MinSiftedBits)
	res.SiftedKeyLength = sifted.Length()
	res.SiftingEfficiency = sifted.Efficiency
	if err != nil {
		log.Warn("sifting failed", zap.Error(err))
		return res.abort(StateInsufficientKey, err), nil
	}
	log.Debug("sifted key",
		zap.Int("bits", sifted.Length()),
		zap.Float64("efficiency", sifted.Efficiency))

	check, aliceKey, bobKey := Detect(sifted, cfg.SampleFraction, cfg.QBERThreshold, rng)
	res.Check = check
	log.Debug("sampled for eavesdrop detection",
		zap.Int("sampleSize", check.SampleSize),
		zap.Float64("qber", check.ErrorRate),
		zap.Float64("threshold", cfg.QBERThreshold))
	if check.Detected {
		// The channel must be treated as compromised; abort before leaking
		// anything further to reconciliation.
		log.Warn("eavesdropper detected",
			zap.Float64("qber", check.ErrorRate),
			zap.Float64("threshold", cfg.QBERThreshold))
		res.SecurityLevel = "compromised"
		return res.abort(StateEavesdropDetected, ErrEavesdropDetected), nil
	}

	var rec ReconcileResult
	if cfg.SkipReconciliation {
		rec = ReconcileResult{Original: bobKey, Corrected: bobKey, Success: true}
	} else {
		rec = Reconcile(aliceKey, bobKey, cfg.BlockSchedule, cfg.MaxPasses, rng)
	}
	res.Reconciliation = rec
	log.Debug("reconciled key",
		zap.Int("bits", rec.Corrected.Size()),
		zap.Int("errorsDetected", rec.ErrorsDetected),
		zap.Int("errorsCorrected", rec.ErrorsCorrected),
		zap.Float64("infoLeaked", rec.InformationLeaked),
		zap.Int("passes", rec.Passes))
	if !rec.Success {
		log.Warn("reconciliation failed",
			zap.Int("passes", rec.Passes),
			zap.Int("errorsCorrected", rec.ErrorsCorrected))
		return res.abort(StateReconciliationFailed, ErrReconciliationFailed), nil
	}

	amp, err := Amplify(rec.Corrected, res.TotalInformationLeaked(), cfg.SecurityParameter, rng)
	res.Amplification = amp
	if err != nil {
		log.Warn("privacy amplification underflow", zap.Error(err))
		return res.abort(StateAmplificationUnderrun, err), nil
	}
	log.Debug("amplified key",
		zap.Int("inputBits", amp.OriginalLength),
		zap.Int("outputBits", amp.FinalLength),
		zap.String("hashFunction", amp.HashFunctionID))

	res.FinalKey = amp.FinalKey
	res.FinalKeyLength = amp.FinalLength
	res.EndToEndEfficiency = float64(amp.FinalLength) / float64(cfg.InitialQubits)
	res.SecurityLevel = fmt.Sprintf("2^-%d", cfg.SecurityParameter)
	res.KeyFingerprint = fingerprint(amp.FinalKey)
	res.State = StateSecured
	res.Success = true
	log.Info("session secured",
		zap.Int("finalKeyBits", res.FinalKeyLength),
		zap.Float64("efficiency", res.EndToEndEfficiency),
		zap.String("fingerprint", res.KeyFingerprint))
	return res, nil
}

func (r Result) abort(s State, err error) Result {
	r.State = s
	r.Err = err
	r.Success = false
	return r
}

func drawSeed(fixed *int64) int64 {
	if fixed != nil {
		return *fixed
	}
	var buf [8]byte
	rand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

func fingerprint(key bitarray.Dense) string {
	if key.Size() == 0 {
		return ""
	}
	sum := blake2b.Sum256(key.Data())
	return hex.EncodeToString(sum[:8])
}
