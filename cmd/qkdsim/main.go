// qkdsim runs BB84 QKD sessions from command-line flags or a YAML scenario
// file and reports per-session results as JSON or CSV.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/thorium/qkd/batch"
	"github.com/thorium/qkd/qkd"
	"github.com/thorium/qkd/report"
)

var (
	qubits       = flag.Int("qubits", 1024, "Number of qubit rounds to transmit per session.")
	noise        = flag.Float64("noise", 0.0, "Per-bit channel noise rate in [0,1].")
	eavesdropper = flag.Bool("eve", false, "Place an intercept-resend eavesdropper on the channel.")
	sampleFrac   = flag.Float64("sample-fraction", qkd.DefaultSampleFraction, "Fraction of the sifted key revealed for QBER estimation.")
	threshold    = flag.Float64("threshold", 0.11, "QBER threshold above which the session aborts.")
	secParam     = flag.Int("security-parameter", 32, "Extra bits removed during privacy amplification.")
	skipRecon    = flag.Bool("skip-reconciliation", false, "Disable cascade error correction.")
	seed         = flag.Int64("seed", -1, "RNG seed; negative draws a fresh one.")
	sessions     = flag.Int("sessions", 1, "Number of independent sessions to run.")
	workers      = flag.Int("workers", 0, "Concurrent sessions; 0 means GOMAXPROCS.")
	scenario     = flag.String("scenario", "", "YAML scenario file overriding the session flags.")
	jsonOut      = flag.String("json", "", "Write results as JSON to this path, - for stdout.")
	csvOut       = flag.String("csv", "", "Write results as CSV to this path, - for stdout.")
	verbose      = flag.BoolP("verbose", "v", false, "Enable debug logging.")
)

// A Scenario is the YAML form of a session configuration.
type Scenario struct {
	Name              string  `yaml:"name"`
	Qubits            int     `yaml:"qubits"`
	Noise             float64 `yaml:"noise"`
	Eavesdropper      bool    `yaml:"eavesdropper"`
	SampleFraction    float64 `yaml:"sampleFraction"`
	Threshold         float64 `yaml:"threshold"`
	SecurityParameter int     `yaml:"securityParameter"`
	SkipRecon         bool    `yaml:"skipReconciliation"`
	Seed              *int64  `yaml:"seed"`
	Sessions          int     `yaml:"sessions"`
}

func main() {
	flag.Parse()
	logger := buildLogger(*verbose)
	defer logger.Sync()

	scenarios, err := loadScenarios()
	if err != nil {
		logger.Fatal("loading scenarios", zap.Error(err))
	}

	var records []report.Record
	for _, sc := range scenarios {
		cfg := sc.config(logger)
		runner := &batch.Runner{
			Config:   cfg,
			Sessions: sc.Sessions,
			Workers:  *workers,
			Logger:   logger,
		}
		results, summary, err := runner.Run(context.Background())
		if err != nil {
			logger.Fatal("running scenario", zap.String("scenario", sc.Name), zap.Error(err))
		}
		logger.Info("scenario complete",
			zap.String("scenario", sc.Name),
			zap.Int("sessions", summary.Sessions),
			zap.Float64("successRate", summary.SuccessRate),
			zap.Float64("meanQBER", summary.MeanQBER),
			zap.Float64("meanFinalKeyBits", summary.MeanFinalKeyBits),
			zap.Float64("interceptDetectionProb",
				qkd.InterceptResendDetectionProbability(expectedSample(sc), cfg.QBERThreshold)))
		for _, res := range results {
			records = append(records, report.FromResult(res))
		}
	}

	if err := emit(records); err != nil {
		logger.Fatal("writing output", zap.Error(err))
	}
}

func loadScenarios() ([]Scenario, error) {
	if *scenario == "" {
		return []Scenario{flagScenario()}, nil
	}
	data, err := os.ReadFile(*scenario)
	if err != nil {
		return nil, err
	}
	var scs []Scenario
	if err := yaml.Unmarshal(data, &scs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", *scenario, err)
	}
	for i := range scs {
		if scs[i].Sessions == 0 {
			scs[i].Sessions = 1
		}
		if scs[i].Name == "" {
			scs[i].Name = fmt.Sprintf("scenario-%d", i)
		}
	}
	return scs, nil
}

func flagScenario() Scenario {
	sc := Scenario{
		Name:              "cli",
		Qubits:            *qubits,
		Noise:             *noise,
		Eavesdropper:      *eavesdropper,
		SampleFraction:    *sampleFrac,
		Threshold:         *threshold,
		SecurityParameter: *secParam,
		SkipRecon:         *skipRecon,
		Sessions:          *sessions,
	}
	if *seed >= 0 {
		s := *seed
		sc.Seed = &s
	}
	return sc
}

func (sc Scenario) config(logger *zap.Logger) qkd.Config {
	return qkd.Config{
		InitialQubits:      sc.Qubits,
		NoiseRate:          sc.Noise,
		Eavesdropper:       sc.Eavesdropper,
		SampleFraction:     sc.SampleFraction,
		QBERThreshold:      sc.Threshold,
		SecurityParameter:  sc.SecurityParameter,
		SkipReconciliation: sc.SkipRecon,
		Seed:               sc.Seed,
		Logger:             logger,
	}
}

func expectedSample(sc Scenario) int {
	frac := sc.SampleFraction
	if frac == 0 {
		frac = qkd.DefaultSampleFraction
	}
	// Half the qubits survive sifting in expectation.
	return int(frac * float64(sc.Qubits) / 2)
}

func emit(records []report.Record) error {
	if *jsonOut != "" {
		w, closeFn, err := openOut(*jsonOut)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := report.WriteJSON(w, records...); err != nil {
			return err
		}
	}
	if *csvOut != "" {
		w, closeFn, err := openOut(*csvOut)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := report.WriteCSV(w, records); err != nil {
			return err
		}
	}
	return nil
}

func openOut(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
