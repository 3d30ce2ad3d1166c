// Package search evaluates network configurations over several seeds and
// ranks them by mean score.
package search

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/hik2833/CSC580WeekSix/pkg/logger"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
)

// ErrNoScore is returned by Best when no configuration produced a finite
// mean score.
var ErrNoScore = errors.New("search: no configuration has a finite score")

// EvalFunc trains one network with p and seed and returns its score, higher
// is better.
type EvalFunc func(ctx context.Context, p nn.Params, seed int64) (float64, error)

// Trial is one (configuration, seed) evaluation.
type Trial struct {
	Config   int           `json:"config"`
	Params   nn.Params     `json:"params"`
	Seed     int64         `json:"seed"`
	Score    float64       `json:"score"`
	Diverged bool          `json:"diverged"`
	Duration time.Duration `json:"duration"`
}

// Result aggregates the trials of one configuration.
type Result struct {
	Index  int       `json:"index"`
	Params nn.Params `json:"params"`
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
}

// Options tunes Run.
type Options struct {
	// Workers bounds concurrent trials; 0 or 1 runs them in order.
	Workers int
	// OnTrial is called after every trial. Calls are serialized and an
	// error stops the search.
	OnTrial func(Trial) error
	// Log defaults to the logger carried by ctx.
	Log logger.Logger
}

// Run evaluates every configuration with every seed. Results come back in
// configuration order whatever the worker count. A trial that fails with
// nn.ErrDiverged scores NaN; any other error cancels the search.
func Run(ctx context.Context, configs []nn.Params, seeds []int64, eval EvalFunc, opts Options) ([]Result, error) {
	if len(configs) == 0 {
		return nil, errors.New("search: no configurations")
	}
	if len(seeds) == 0 {
		return nil, errors.New("search: no seeds")
	}
	for i, p := range configs {
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "search: config %d", i)
		}
	}
	log := opts.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}

	scores := make([][]float64, len(configs))
	for i := range scores {
		scores[i] = make([]float64, len(seeds))
	}

	var mu sync.Mutex
	trial := func(ctx context.Context, ci, si int) error {
		p, seed := configs[ci], seeds[si]
		start := time.Now()
		score, err := eval(ctx, p, seed)
		diverged := errors.Is(err, nn.ErrDiverged)
		if err != nil && !diverged {
			return errors.Wrapf(err, "search: config %d seed %d", ci, seed)
		}
		if diverged {
			score = math.NaN()
		}
		scores[ci][si] = score
		t := Trial{Config: ci, Params: p, Seed: seed, Score: score, Diverged: diverged, Duration: time.Since(start)}
		log.Info("trial finished",
			"config", ci, "seed", seed, "score", score, "diverged", diverged,
			"duration", t.Duration, "params", p.String())
		if opts.OnTrial != nil {
			mu.Lock()
			err := opts.OnTrial(t)
			mu.Unlock()
			if err != nil {
				return errors.Wrapf(err, "search: config %d seed %d", ci, seed)
			}
		}
		return nil
	}

	if opts.Workers <= 1 {
		for ci := range configs {
			for si := range seeds {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if err := trial(ctx, ci, si); err != nil {
					return nil, err
				}
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for ci := range configs {
			for si := range seeds {
				ci, si := ci, si
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					return trial(gctx, ci, si)
				})
			}
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(configs))
	for i, p := range configs {
		results[i] = Result{Index: i, Params: p, Scores: scores[i]}
		results[i].Mean, results[i].Std = meanStd(scores[i])
	}
	return results, nil
}

// meanStd is NaN if any score is NaN. A single score has zero spread.
func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		if math.IsNaN(x) {
			return math.NaN(), math.NaN()
		}
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

// Rank returns a copy of results ordered best first: higher mean, then lower
// std, then lower index. NaN means sort last.
func Rank(results []Result) []Result {
	out := append([]Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		an, bn := math.IsNaN(a.Mean), math.IsNaN(b.Mean)
		if an != bn {
			return bn
		}
		if !an && a.Mean != b.Mean {
			return a.Mean > b.Mean
		}
		if !an && a.Std != b.Std {
			return a.Std < b.Std
		}
		return a.Index < b.Index
	})
	return out
}

// Best returns the top-ranked result.
func Best(results []Result) (Result, error) {
	if len(results) == 0 {
		return Result{}, errors.New("search: no results")
	}
	top := Rank(results)[0]
	if math.IsNaN(top.Mean) {
		return Result{}, ErrNoScore
	}
	return top, nil
}
