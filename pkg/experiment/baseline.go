package experiment

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/logger"
	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
	"github.com/hik2833/CSC580WeekSix/pkg/model"
	"github.com/hik2833/CSC580WeekSix/pkg/report"
)

// NewBaseline builds the named baseline from cfg. The decision tree prunes
// against prune when cfg asks for it.
func NewBaseline(name string, cfg config.Baseline, sp *Splits) (model.Baseline, error) {
	switch name {
	case config.BaselineForest:
		f := cfg.Forest
		return model.NewRandomForest(
			model.WithNEstimators(f.Trees),
			model.WithForestDepth(f.MaxDepth),
			model.WithForestFeatures(f.MaxFeatures),
			model.WithForestMinLeaf(max(f.MinLeaf, 1)),
			model.WithBootstrap(f.Bootstrap),
			model.WithForestSeed(f.Seed),
		), nil
	case config.BaselineLogistic:
		l := cfg.Logistic
		lr := model.NewLogisticRegression(l.LearningRate, l.Epochs, l.BatchSize, l.Seed)
		if l.Optimizer != "" {
			lr.Optimizer = l.Optimizer
		}
		return lr, nil
	case config.BaselineTree:
		t := cfg.Tree
		opts := []model.Option{
			model.WithMaxDepth(t.MaxDepth),
			model.WithMinImpurityDecrease(t.MinImpurityDecrease),
			model.WithRandomState(0),
		}
		if t.Criterion != "" {
			opts = append(opts, model.WithCriterion(t.Criterion))
		}
		if t.Prune {
			return model.NewTreeBaseline(sp.Valid, opts...), nil
		}
		return model.NewTreeBaseline(nil, opts...), nil
	default:
		return nil, errors.Errorf("experiment: unknown baseline %q", name)
	}
}

// scoreSplits evaluates clf on every split. A split with a single class
// keeps its other scores and reports NaN ROC-AUC.
func scoreSplits(name string, clf metrics.Prober, sp *Splits, log logger.Logger) (report.ModelScores, error) {
	ms := report.ModelScores{Model: name}
	for _, s := range []struct {
		name string
		dst  *metrics.Scores
		ds   *data.Dataset
	}{{"train", &ms.Train, sp.Train}, {"valid", &ms.Valid, sp.Valid}, {"test", &ms.Test, sp.Test}} {
		var err error
		*s.dst, err = metrics.Evaluate(clf, s.ds)
		if errors.Is(err, metrics.ErrSingleClass) {
			log.Warn("single-class split, ROC-AUC undefined", "model", name, "split", s.name)
			continue
		}
		if err != nil {
			return ms, errors.Wrapf(err, "experiment: score %s on %s", name, s.name)
		}
	}
	return ms, nil
}

// testCurve is clf's ROC curve on the test split, or false if it has one class.
func testCurve(label string, clf metrics.Prober, sp *Splits) (report.Curve, bool, error) {
	p, err := clf.PredictProba(sp.Test.X)
	if err != nil {
		return report.Curve{}, false, err
	}
	fpr, tpr, err := metrics.ROCCurve(sp.Test.Y, p)
	if errors.Is(err, metrics.ErrSingleClass) {
		return report.Curve{}, false, nil
	}
	if err != nil {
		return report.Curve{}, false, err
	}
	return report.Curve{Label: label, FPR: fpr, TPR: tpr}, true, nil
}

// runBaselines trains and scores every configured baseline, adding their
// scores and test ROC curves to sum. A trained forest is written to
// forestPath when that is non-empty.
func runBaselines(ctx context.Context, cfg config.Baseline, sp *Splits, sum *report.Summary, forestPath string, log logger.Logger) error {
	for _, name := range cfg.Models {
		clf, err := NewBaseline(name, cfg, sp)
		if err != nil {
			return err
		}
		start := time.Now()
		if err := clf.Train(ctx, sp.Train); err != nil {
			return errors.Wrapf(err, "experiment: train %s", name)
		}
		ms, err := scoreSplits(name, clf, sp, log)
		if err != nil {
			return err
		}
		log.Info("baseline trained", "model", name, "duration", time.Since(start),
			"train_auc", ms.Train.ROCAUC, "valid_auc", ms.Valid.ROCAUC, "test_auc", ms.Test.ROCAUC)
		sum.Baselines = append(sum.Baselines, ms)

		curve, ok, err := testCurve(name, clf, sp)
		if err != nil {
			return err
		}
		if ok {
			sum.Curves = append(sum.Curves, curve)
		}

		if rf, isForest := clf.(*model.RandomForest); isForest && forestPath != "" {
			blob, err := rf.MarshalBinary()
			if err != nil {
				return err
			}
			if err := os.WriteFile(forestPath, blob, 0o644); err != nil {
				return errors.Wrap(err, "experiment: save forest")
			}
			log.Info("forest saved", "path", forestPath, "bytes", len(blob))
		}
	}
	return nil
}
