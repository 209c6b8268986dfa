// Package batch runs many independent QKD sessions concurrently and
// aggregates their statistics. Sessions share no mutable state, so they are
// embarrassingly parallel.
package batch

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/thorium/qkd/qkd"
)

// A Summary aggregates the outcomes of a batch of sessions.
type Summary struct {
	Sessions         int
	Successes        int
	SuccessRate      float64
	MeanQBER         float64
	StdDevQBER       float64
	MeanEfficiency   float64
	MeanFinalKeyBits float64
}

// A Runner executes Sessions copies of a session configuration across Workers
// goroutines. Session i runs with seed BaseSeed+i, so a batch is exactly as
// reproducible as a single session.
type Runner struct {
	Config   qkd.Config
	Sessions int

	// Workers bounds concurrency. Defaults to GOMAXPROCS.
	Workers int

	// BaseSeed seeds session 0. When nil, Config.Seed is used if set,
	// otherwise each session draws fresh randomness and the batch is not
	// reproducible.
	BaseSeed *int64

	// Metrics, when non-nil, observes every completed session.
	Metrics *Metrics

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Run executes the batch, honoring ctx cancellation between sessions, and
// returns the per-session results in session order plus their Summary.
func (r *Runner) Run(ctx context.Context) ([]qkd.Result, Summary, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, Summary{}, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	base := r.BaseSeed
	if base == nil {
		base = r.Config.Seed
	}

	results := make([]qkd.Result, r.Sessions)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < r.Sessions; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := r.Config
			if base != nil {
				seed := *base + int64(i)
				cfg.Seed = &seed
			}
			res, err := qkd.Run(cfg)
			if err != nil {
				return err
			}
			results[i] = res
			if r.Metrics != nil {
				r.Metrics.Observe(res)
			}
			log.Debug("session finished",
				zap.Int("session", i),
				zap.Int64("seed", res.Seed),
				zap.Bool("success", res.Success),
				zap.String("state", string(res.State)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}
	return results, Summarize(results), nil
}

// Summarize folds a slice of session results into aggregate statistics.
func Summarize(results []qkd.Result) Summary {
	s := Summary{Sessions: len(results)}
	if len(results) == 0 {
		return s
	}
	qbers := make([]float64, 0, len(results))
	effs := make([]float64, 0, len(results))
	bits := make([]float64, 0, len(results))
	for _, res := range results {
		if res.Success {
			s.Successes++
		}
		qbers = append(qbers, res.Check.ErrorRate)
		effs = append(effs, res.EndToEndEfficiency)
		bits = append(bits, float64(res.FinalKeyLength))
	}
	s.SuccessRate = float64(s.Successes) / float64(s.Sessions)
	s.MeanQBER = stat.Mean(qbers, nil)
	s.StdDevQBER = stat.StdDev(qbers, nil)
	s.MeanEfficiency = stat.Mean(effs, nil)
	s.MeanFinalKeyBits = stat.Mean(bits, nil)
	return s
}
