// Package experiment runs the whole workflow: load and split the dataset,
// train the baselines, search network configurations, retrain the best one
// and report.
package experiment

import (
	"context"
	"io"
	"math"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
	"github.com/hik2833/CSC580WeekSix/pkg/logger"
	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
	"github.com/hik2833/CSC580WeekSix/pkg/monitor"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/report"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
	"github.com/hik2833/CSC580WeekSix/pkg/store"
)

// NetworkModel labels the retrained best network in reports.
const NetworkModel = "network"

// Output file names inside the output directory.
const (
	SummaryFile = "summary.json"
	ForestFile  = "forest.gob"
	ROCPlot     = "roc.png"
	HistoryPlot = "history.png"
	SearchPlot  = "search.png"
)

// Summary is the outcome of a run.
type Summary = report.Summary

// Deps carries what a run needs besides its config. Zero values are usable.
type Deps struct {
	Log logger.Logger
	// Out receives the console tables; nil skips them.
	Out io.Writer
	Now func() time.Time
}

type runner struct {
	cfg   config.Config
	deps  Deps
	log   logger.Logger
	sum   *Summary
	store *store.Store
	mon   *monitor.Metrics
}

// Run executes the full pipeline.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Summary, error) {
	return execute(ctx, cfg, deps, true)
}

// Baselines loads and splits the data and trains only the baselines.
func Baselines(ctx context.Context, cfg config.Config, deps Deps) (*Summary, error) {
	return execute(ctx, cfg, deps, false)
}

func execute(ctx context.Context, cfg config.Config, deps Deps, withSearch bool) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &runner{
		cfg:  cfg,
		deps: deps,
		sum:  &Summary{RunID: uuid.NewString(), Task: cfg.Dataset.Task, StartedAt: deps.Now()},
		mon:  monitor.New(),
	}
	r.log = deps.Log.With("run", r.sum.RunID)
	ctx = logger.WithContext(ctx, r.log)

	if err := os.MkdirAll(cfg.Output.Dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "experiment: create output dir")
	}
	if cfg.Output.ResultsDB != "" {
		st, err := store.Open(ctx, cfg.OutputPath(cfg.Output.ResultsDB))
		if err != nil {
			return nil, err
		}
		defer func() { _ = st.Close() }()
		r.store = st
		r.log.Debug("results ledger opened", "path", st.Path())
		if err := r.saveRun(ctx); err != nil {
			return nil, err
		}
	}

	r.log.Info("run started", "task", cfg.Dataset.Task, "source", cfg.Dataset.Source, "search", withSearch)
	if err := r.stages(ctx, withSearch); err != nil {
		r.log.Error("run failed", "err", err)
		return r.sum, err
	}
	r.sum.FinishedAt = deps.Now()
	if r.store != nil {
		if err := r.saveRun(ctx); err != nil {
			return r.sum, err
		}
	}
	if err := r.writeReports(); err != nil {
		return r.sum, err
	}
	r.log.Info("run finished", "duration", r.sum.FinishedAt.Sub(r.sum.StartedAt))
	return r.sum, nil
}

func (r *runner) stages(ctx context.Context, withSearch bool) error {
	ds, err := Load(ctx, r.cfg.Dataset, r.log)
	if err != nil {
		return err
	}
	r.sum.Task = ds.Task
	sp, err := Prepare(ds, r.cfg.Dataset, r.log)
	if err != nil {
		return err
	}
	r.sum.Features = sp.Features()
	r.sum.Splits = []report.SplitInfo{
		{Name: "train", N: sp.Train.Len(), Positives: sp.Train.Positives()},
		{Name: "valid", N: sp.Valid.Len(), Positives: sp.Valid.Positives()},
		{Name: "test", N: sp.Test.Len(), Positives: sp.Test.Positives()},
	}

	forestPath := ""
	if r.cfg.Output.SaveForest {
		forestPath = r.cfg.OutputPath(ForestFile)
	}
	if err := runBaselines(ctx, r.cfg.Baseline, sp, r.sum, forestPath, r.log); err != nil {
		return err
	}
	if !withSearch {
		return nil
	}
	return r.search(ctx, sp)
}

// Evaluator returns the search score: a network trained on the training
// split, scored by ROC-AUC on the validation split.
func Evaluator(sp *Splits, onEpoch func(nn.EpochStats)) search.EvalFunc {
	return func(ctx context.Context, p nn.Params, seed int64) (float64, error) {
		net, err := nn.New(sp.Features(), p, seed)
		if err != nil {
			return math.NaN(), err
		}
		if _, err := net.Fit(ctx, sp.Train, nil, onEpoch); err != nil {
			return math.NaN(), err
		}
		prob, err := net.PredictProba(sp.Valid.X)
		if err != nil {
			return math.NaN(), err
		}
		return metrics.ROCAUC(sp.Valid.Y, prob)
	}
}

// Retrain fits a fresh network with p and seed on the training split,
// recording validation history.
func Retrain(ctx context.Context, p nn.Params, seed int64, sp *Splits, onEpoch func(nn.EpochStats)) (*nn.Network, nn.History, error) {
	net, err := nn.New(sp.Features(), p, seed)
	if err != nil {
		return nil, nil, err
	}
	hist, err := net.Fit(ctx, sp.Train, sp.Valid, onEpoch)
	if err != nil {
		return nil, hist, errors.Wrap(err, "experiment: retrain best network")
	}
	return net, hist, nil
}

func (r *runner) search(ctx context.Context, sp *Splits) error {
	configs := r.cfg.Configs()
	seeds := r.cfg.Search.Seeds
	r.log.Info("search started", "configs", len(configs), "seeds", len(seeds), "workers", r.cfg.Search.Workers)

	onEpoch := func(e nn.EpochStats) {
		r.mon.ObserveEpoch()
		r.log.Debug("epoch", "epoch", e.Epoch, "train_loss", e.TrainLoss, "valid_loss", e.ValidLoss, "valid_auc", e.ValidAUC)
	}
	onTrial := func(t search.Trial) error {
		r.mon.ObserveTrial(t)
		if r.store == nil {
			return nil
		}
		return r.store.SaveTrial(ctx, r.sum.RunID, t)
	}
	results, err := search.Run(ctx, configs, seeds, Evaluator(sp, onEpoch), search.Options{
		Workers: r.cfg.Search.Workers,
		OnTrial: onTrial,
	})
	if err != nil {
		return err
	}
	r.sum.Ranking = search.Rank(results)
	best, err := search.Best(results)
	if err != nil {
		return err
	}
	r.sum.Best = best
	r.log.Info("best configuration", "config", best.Index, "mean", best.Mean, "std", best.Std, "params", best.Params.String())

	net, hist, err := Retrain(ctx, best.Params, seeds[0], sp, onEpoch)
	r.sum.History = hist
	if err != nil {
		return err
	}
	r.sum.Final, err = scoreSplits(NetworkModel, net, sp, r.log)
	if err != nil {
		return err
	}
	curve, ok, err := testCurve(NetworkModel, net, sp)
	if err != nil {
		return err
	}
	if ok {
		r.sum.Curves = append(r.sum.Curves, curve)
	}
	r.log.Info("final evaluation", "weights", net.NumParams(), "valid_auc", r.sum.Final.Valid.ROCAUC, "test_auc", r.sum.Final.Test.ROCAUC)
	return nil
}

func (r *runner) saveRun(ctx context.Context) error {
	cfgJSON, err := json.Marshal(r.cfg)
	if err != nil {
		return errors.Wrap(err, "experiment: encode config")
	}
	run := store.Run{
		ID:         r.sum.RunID,
		Task:       r.sum.Task,
		StartedAt:  r.sum.StartedAt,
		FinishedAt: r.sum.FinishedAt,
		Config:     cfgJSON,
		BestIndex:  -1,
		BestMean:   math.NaN(),
		TestAUC:    math.NaN(),
	}
	if len(r.sum.Ranking) > 0 {
		run.BestIndex = r.sum.Best.Index
		run.BestMean = r.sum.Best.Mean
	}
	if r.sum.Final.Model != "" {
		run.TestAUC = r.sum.Final.Test.ROCAUC
	}
	return r.store.SaveRun(ctx, run)
}

func (r *runner) writeReports() error {
	cfg := r.cfg
	if r.deps.Out != nil {
		if err := report.WriteTable(r.deps.Out, r.sum, cfg.Search.TopN); err != nil {
			return errors.Wrap(err, "experiment: write table")
		}
	}
	path := cfg.OutputPath(SummaryFile)
	if err := report.WriteJSON(path, r.sum); err != nil {
		return err
	}
	r.log.Info("summary written", "path", path)

	if cfg.Output.Plots {
		if len(r.sum.Curves) > 0 {
			if err := report.PlotROC(cfg.OutputPath(ROCPlot), r.sum.Curves); err != nil {
				return err
			}
		}
		if len(r.sum.History) > 0 {
			if err := report.PlotHistory(cfg.OutputPath(HistoryPlot), r.sum.History); err != nil {
				return err
			}
		}
		if len(r.sum.Ranking) > 0 {
			if err := report.PlotSearch(cfg.OutputPath(SearchPlot), r.sum.Ranking, cfg.Search.TopN); err != nil {
				return err
			}
		}
	}
	if cfg.Output.MetricsFile != "" {
		if err := r.mon.WriteTextfile(cfg.OutputPath(cfg.Output.MetricsFile)); err != nil {
			return err
		}
	}
	return nil
}
