package experiment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/dataprep"
	"github.com/hik2833/CSC580WeekSix/pkg/loader"
	"github.com/hik2833/CSC580WeekSix/pkg/logger"
	"github.com/hik2833/CSC580WeekSix/pkg/pipeline"
	"github.com/hik2833/CSC580WeekSix/pkg/stats"
)

// Splits are the preprocessed train, valid and test sets.
type Splits struct {
	Train, Valid, Test *data.Dataset
}

// Features is the preprocessed feature width.
func (s *Splits) Features() int { return s.Train.NumFeatures() }

// Fetch downloads the configured S3 object to the dataset path and returns
// the local path.
func Fetch(ctx context.Context, cfg config.Dataset, force bool, log logger.Logger) (string, error) {
	opts := cfg.S3
	opts.Force = force
	f, err := data.NewFetcher(ctx, opts, log)
	if err != nil {
		return "", err
	}
	return f.Download(ctx, cfg.Path)
}

// Load reads the configured dataset, fetching it first when the source is S3.
func Load(ctx context.Context, cfg config.Dataset, log logger.Logger) (*data.Dataset, error) {
	path := cfg.Path
	if cfg.Source == config.SourceS3 {
		var err error
		if path, err = Fetch(ctx, cfg, false, log); err != nil {
			return nil, err
		}
	}
	switch cfg.Format {
	case config.FormatTox21:
		return data.LoadTox21(path, data.Tox21Options{Task: cfg.Task, Fingerprint: cfg.Fingerprint, Log: log})
	case config.FormatFeatures:
		return data.LoadFeatureCSV(ctx, path, cfg.LabelColumn, log)
	default:
		return nil, errors.Errorf("experiment: unknown dataset format %q", cfg.Format)
	}
}

// Preprocessor builds the configured pipeline: mean imputation, variance
// filter, then scaling.
func Preprocessor(cfg config.Preprocess) *pipeline.Pipeline {
	var steps []pipeline.Transformer
	if cfg.Impute {
		steps = append(steps, dataprep.NewMeanImputer())
	}
	if cfg.VarianceThreshold >= 0 {
		steps = append(steps, dataprep.NewVarianceThreshold(cfg.VarianceThreshold))
	}
	if cfg.Scale {
		steps = append(steps, stats.NewStandardScaler())
	}
	return pipeline.NewPipeline(steps...)
}

// Prepare splits ds, fits the preprocessing pipeline on the training split
// and applies it to all three. Each split gets class-balance weights from
// its own labels. The validation split must hold both classes since search
// scores are measured on it.
func Prepare(ds *data.Dataset, cfg config.Dataset, log logger.Logger) (*Splits, error) {
	if log == nil {
		log = logger.Discard()
	}
	train, valid, test, err := loader.TrainValidTestSplit(ds, cfg.Split.Train, cfg.Split.Valid, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	if p := valid.Positives(); p == 0 || p == valid.Len() {
		return nil, errors.Errorf("experiment: validation split has %d of %d positives; ROC-AUC needs both classes", p, valid.Len())
	}

	pipe := Preprocessor(cfg.Preprocess)
	if err := pipe.Fit(train.X); err != nil {
		return nil, errors.Wrap(err, "experiment: fit preprocessing")
	}
	names := pipe.Names(train.Features)
	sp := &Splits{}
	for _, s := range []struct {
		dst **data.Dataset
		src *data.Dataset
	}{{&sp.Train, train}, {&sp.Valid, valid}, {&sp.Test, test}} {
		out := s.src.WithFeatures(pipe.Transform(s.src.X), names)
		out.W = data.ClassBalanceWeights(out.Y)
		*s.dst = out
	}
	log.Info("dataset prepared",
		"train", sp.Train.Len(), "valid", sp.Valid.Len(), "test", sp.Test.Len(),
		"features_in", ds.NumFeatures(), "features", sp.Features(), "steps", pipe.Len())
	return sp, nil
}
