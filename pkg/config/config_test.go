package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if n := len(cfg.Configs()); n != 16 {
		t.Fatalf("default grid has %d configs, want 16", n)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	doc := `
dataset:
  source: file
  path: /tmp/tox21.csv
  task: SR-p53
  split:
    seed: 7
search:
  seeds: [1, 2]
  workers: 4
  grid:
    layer_size: [32]
output:
  dir: out
  results_db: trials.db
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Dataset.Task != "SR-p53" || cfg.Dataset.Source != SourceFile || cfg.Dataset.Split.Seed != 7 {
		t.Fatalf("dataset = %+v", cfg.Dataset)
	}
	if cfg.Dataset.Split.Train != 0.8 || cfg.Dataset.Fingerprint.Bits != 1024 {
		t.Fatalf("defaults lost: %+v", cfg.Dataset)
	}
	if len(cfg.Search.Seeds) != 2 || cfg.Search.Workers != 4 {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if ls := cfg.Search.Grid.LayerSize; len(ls) != 1 || ls[0] != 32 {
		t.Fatalf("layer sizes = %v", ls)
	}
	if got := cfg.OutputPath(cfg.Output.ResultsDB); got != filepath.Join("out", "trials.db") {
		t.Fatalf("results db path = %q", got)
	}
	if got := cfg.OutputPath("/abs/x.prom"); got != "/abs/x.prom" {
		t.Fatalf("absolute path rewritten to %q", got)
	}
}

func TestLoadEmptyPathAndErrors(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg.Dataset.Task != "NR-AR" {
		t.Fatalf("Load(\"\") = %+v, %v", cfg.Dataset, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("search: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadForestBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	if err := os.WriteFile(path, []byte("baseline:\n  forest:\n    trees: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Baseline.Forest.Bootstrap || cfg.Baseline.Forest.Trees != 10 {
		t.Fatalf("forest = %+v, want bootstrap kept on", cfg.Baseline.Forest)
	}
	if err := os.WriteFile(path, []byte("baseline:\n  forest:\n    bootstrap: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg, err = Load(path); err != nil {
		t.Fatal(err)
	}
	if cfg.Baseline.Forest.Bootstrap {
		t.Fatal("bootstrap: false was ignored")
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	want := Default()
	want.Search.Seeds = []int64{9}
	want.Baseline.Models = []string{BaselineForest, BaselineTree}
	if err := Write(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Search.Seeds) != 1 || got.Search.Seeds[0] != 9 || len(got.Baseline.Models) != 2 {
		t.Fatalf("loaded %+v", got.Search)
	}
	if got.Search.Defaults != want.Search.Defaults {
		t.Fatalf("defaults = %+v, want %+v", got.Search.Defaults, want.Search.Defaults)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"source", func(c *Config) { c.Dataset.Source = "ftp" }, "dataset.source"},
		{"path", func(c *Config) { c.Dataset.Path = "" }, "dataset.path"},
		{"format", func(c *Config) { c.Dataset.Format = "sdf" }, "dataset.format"},
		{"label column", func(c *Config) { c.Dataset.Source = SourceFile; c.Dataset.Format = FormatFeatures }, "label_column"},
		{"s3 features", func(c *Config) { c.Dataset.Format = FormatFeatures; c.Dataset.LabelColumn = 0 }, "s3"},
		{"fingerprint", func(c *Config) { c.Dataset.Fingerprint.Bits = 0 }, "fingerprint"},
		{"split", func(c *Config) { c.Dataset.Split.Train = 0.95 }, "split"},
		{"baseline", func(c *Config) { c.Baseline.Models = []string{"svm"} }, "unknown baseline"},
		{"trees", func(c *Config) { c.Baseline.Forest.Trees = 0 }, "trees"},
		{"logistic", func(c *Config) { c.Baseline.Models = []string{BaselineLogistic}; c.Baseline.Logistic.Epochs = 0 }, "logistic"},
		{"criterion", func(c *Config) { c.Baseline.Models = []string{BaselineTree}; c.Baseline.Tree.Criterion = "mse" }, "criterion"},
		{"min impurity", func(c *Config) { c.Baseline.Models = []string{BaselineTree}; c.Baseline.Tree.MinImpurityDecrease = -1 }, "min_impurity_decrease"},
		{"seeds", func(c *Config) { c.Search.Seeds = nil }, "seeds"},
		{"workers", func(c *Config) { c.Search.Workers = -1 }, "workers"},
		{"grid", func(c *Config) { c.Search.Grid.Dropout = []float64{1.5} }, "dropout"},
		{"output", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
