// Package config holds the experiment file: where the data comes from, how
// it is split and preprocessed, which baselines run, the search grid and
// where results go.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

// Dataset sources and formats.
const (
	SourceFile = "file"
	SourceS3   = "s3"

	FormatTox21    = "tox21"
	FormatFeatures = "features"
)

// Baseline names.
const (
	BaselineForest   = "random_forest"
	BaselineLogistic = "logistic_regression"
	BaselineTree     = "decision_tree"
)

type Config struct {
	Dataset  Dataset  `yaml:"dataset" json:"dataset"`
	Baseline Baseline `yaml:"baseline" json:"baseline"`
	Search   Search   `yaml:"search" json:"search"`
	Output   Output   `yaml:"output" json:"output"`
	Log      Log      `yaml:"log" json:"log"`
}

type Dataset struct {
	// Source is "file" (Path is read as is) or "s3" (the object is
	// downloaded to Path first).
	Source      string                  `yaml:"source" json:"source"`
	Path        string                  `yaml:"path" json:"path"`
	Format      string                  `yaml:"format" json:"format"`
	Task        string                  `yaml:"task" json:"task"`
	LabelColumn int                     `yaml:"label_column" json:"label_column"`
	Fingerprint data.FingerprintOptions `yaml:"fingerprint" json:"fingerprint"`
	S3          data.FetchOptions       `yaml:"s3" json:"s3"`
	Split       Split                   `yaml:"split" json:"split"`
	Preprocess  Preprocess              `yaml:"preprocess" json:"preprocess"`
}

type Split struct {
	Train float64 `yaml:"train" json:"train"`
	Valid float64 `yaml:"valid" json:"valid"`
	Seed  int64   `yaml:"seed" json:"seed"`
}

type Preprocess struct {
	Impute bool `yaml:"impute" json:"impute"`
	// VarianceThreshold drops columns whose training variance is at or below
	// it. Negative disables the filter.
	VarianceThreshold float64 `yaml:"variance_threshold" json:"variance_threshold"`
	Scale             bool    `yaml:"scale" json:"scale"`
}

type Baseline struct {
	Models   []string `yaml:"models" json:"models"`
	Forest   Forest   `yaml:"forest" json:"forest"`
	Logistic Logistic `yaml:"logistic" json:"logistic"`
	Tree     Tree     `yaml:"tree" json:"tree"`
}

type Forest struct {
	Trees       int   `yaml:"trees" json:"trees"`
	MaxDepth    int   `yaml:"max_depth" json:"max_depth"`
	MaxFeatures int   `yaml:"max_features" json:"max_features"`
	MinLeaf     int   `yaml:"min_leaf" json:"min_leaf"`
	Bootstrap   bool  `yaml:"bootstrap" json:"bootstrap"`
	Seed        int64 `yaml:"seed" json:"seed"`
}

type Logistic struct {
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size"`
	Optimizer    string  `yaml:"optimizer" json:"optimizer"`
	Seed         int64   `yaml:"seed" json:"seed"`
}

type Tree struct {
	MaxDepth  int    `yaml:"max_depth" json:"max_depth"`
	Criterion string `yaml:"criterion" json:"criterion"`
	Prune     bool   `yaml:"prune" json:"prune"`
	// MinImpurityDecrease is the smallest gain a split must beat.
	MinImpurityDecrease float64 `yaml:"min_impurity_decrease" json:"min_impurity_decrease"`
}

type Search struct {
	Seeds    []int64     `yaml:"seeds" json:"seeds"`
	Workers  int         `yaml:"workers" json:"workers"`
	Defaults nn.Params   `yaml:"defaults" json:"defaults"`
	Grid     search.Grid `yaml:"grid" json:"grid"`
	TopN     int         `yaml:"top_n" json:"top_n"`
}

type Output struct {
	Dir         string `yaml:"dir" json:"dir"`
	ResultsDB   string `yaml:"results_db" json:"results_db"`
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`
	Plots       bool   `yaml:"plots" json:"plots"`
	SaveForest  bool   `yaml:"save_forest" json:"save_forest"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default is the stock Tox21 NR-AR experiment: a 500-tree forest against a
// grid of 16 networks, three seeds each.
func Default() Config {
	return Config{
		Dataset: Dataset{
			Source:      SourceS3,
			Path:        filepath.Join("data", "tox21.csv.gz"),
			Format:      FormatTox21,
			Task:        "NR-AR",
			LabelColumn: -1,
			Fingerprint: data.DefaultFingerprint(),
			S3: data.FetchOptions{
				Region: data.Tox21Region,
				Bucket: data.Tox21Bucket,
				Key:    data.Tox21Key,
			},
			Split:      Split{Train: 0.8, Valid: 0.1, Seed: 123},
			Preprocess: Preprocess{Impute: true, VarianceThreshold: 0},
		},
		Baseline: Baseline{
			Models: []string{BaselineForest},
			Forest: Forest{Trees: 500, Bootstrap: true, Seed: 42},
			Logistic: Logistic{
				LearningRate: 0.1,
				Epochs:       20,
				BatchSize:    100,
				Optimizer:    "sgd",
				Seed:         42,
			},
			Tree: Tree{Criterion: "gini", Prune: true},
		},
		Search: Search{
			Seeds:    []int64{123, 456, 789},
			Workers:  1,
			Defaults: nn.DefaultParams(),
			Grid: search.Grid{
				HiddenLayers: []int{1, 2},
				LayerSize:    []int{500, 1000},
				Dropout:      []float64{0.25, 0.5},
				LearningRate: []float64{0.001, 0.0001},
			},
			TopN: 10,
		},
		Output: Output{
			Dir:   "results",
			Plots: true,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load decodes the YAML file at path over Default. An empty path returns
// Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Write encodes cfg as YAML to path.
func Write(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "config: encode")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "config: write")
}

// Configs expands the search grid over the defaults.
func (c Config) Configs() []nn.Params { return c.Search.Grid.Expand(c.Search.Defaults) }

// Validate checks everything that can be checked before any data is read.
func (c Config) Validate() error {
	d := c.Dataset
	switch d.Source {
	case SourceFile, SourceS3:
	default:
		return errors.Errorf("config: dataset.source must be %q or %q, got %q", SourceFile, SourceS3, d.Source)
	}
	if d.Path == "" {
		return errors.New("config: dataset.path is empty")
	}
	switch d.Format {
	case FormatTox21:
		if d.Fingerprint.Bits <= 0 || d.Fingerprint.Radius < 0 {
			return errors.Errorf("config: invalid fingerprint %+v", d.Fingerprint)
		}
	case FormatFeatures:
		if d.LabelColumn < 0 {
			return errors.New("config: dataset.label_column is required for feature CSVs")
		}
		if d.Source == SourceS3 {
			return errors.New("config: s3 source only serves the tox21 format")
		}
	default:
		return errors.Errorf("config: unknown dataset.format %q", d.Format)
	}
	s := d.Split
	if s.Train <= 0 || s.Valid <= 0 || s.Train+s.Valid >= 1 {
		return errors.Errorf("config: split fractions train=%v valid=%v must be positive and sum below 1", s.Train, s.Valid)
	}

	for _, m := range c.Baseline.Models {
		switch m {
		case BaselineForest:
			if c.Baseline.Forest.Trees <= 0 {
				return errors.New("config: baseline.forest.trees must be positive")
			}
		case BaselineLogistic:
			l := c.Baseline.Logistic
			if l.LearningRate <= 0 || l.Epochs <= 0 || l.BatchSize <= 0 {
				return errors.Errorf("config: invalid baseline.logistic %+v", l)
			}
		case BaselineTree:
			if cr := c.Baseline.Tree.Criterion; cr != "" && cr != "gini" && cr != "entropy" {
				return errors.Errorf("config: unknown tree criterion %q", cr)
			}
			if c.Baseline.Tree.MinImpurityDecrease < 0 {
				return errors.New("config: baseline.tree.min_impurity_decrease must not be negative")
			}
		default:
			return errors.Errorf("config: unknown baseline %q", m)
		}
	}

	if len(c.Search.Seeds) == 0 {
		return errors.New("config: search.seeds is empty")
	}
	if c.Search.Workers < 0 {
		return errors.Errorf("config: search.workers must be >= 0, got %d", c.Search.Workers)
	}
	for i, p := range c.Configs() {
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "config: search config %d", i)
		}
	}
	if c.Output.Dir == "" {
		return errors.New("config: output.dir is empty")
	}
	return nil
}

// OutputPath resolves name inside the output directory unless it is absolute.
func (c Config) OutputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}
