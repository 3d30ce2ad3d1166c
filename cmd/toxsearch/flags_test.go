package main

import (
	"context"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
)

func parseOverrides(t *testing.T, args ...string) config.Config {
	t.Helper()
	o := &overrides{}
	cfg := config.Default()
	cmd := &cli.Command{
		Name:  "t",
		Flags: append(datasetFlags(o), searchFlags(o)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			o.apply(c, &cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"t"}, args...)); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOverridesOnlyTouchSetFlags(t *testing.T) {
	def := config.Default()
	cfg := parseOverrides(t)
	if cfg.Dataset.Task != def.Dataset.Task || cfg.Search.Workers != def.Search.Workers || !cfg.Output.Plots {
		t.Fatalf("unset flags changed the config: %+v", cfg)
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := parseOverrides(t,
		"--task", "SR-p53",
		"--source", "file",
		"-d", "local.csv",
		"--seeds", "1", "--seeds", "2",
		"-j", "4",
		"--trees", "50",
		"--no-plots",
		"--results-db", "ledger.db",
	)
	if cfg.Dataset.Task != "SR-p53" || cfg.Dataset.Source != "file" || cfg.Dataset.Path != "local.csv" {
		t.Fatalf("dataset = %+v", cfg.Dataset)
	}
	if len(cfg.Search.Seeds) != 2 || cfg.Search.Seeds[0] != 1 || cfg.Search.Seeds[1] != 2 {
		t.Fatalf("seeds = %v", cfg.Search.Seeds)
	}
	if cfg.Search.Workers != 4 || cfg.Baseline.Forest.Trees != 50 {
		t.Fatalf("workers = %d, trees = %d", cfg.Search.Workers, cfg.Baseline.Forest.Trees)
	}
	if cfg.Output.Plots {
		t.Fatal("--no-plots left plots on")
	}
	if cfg.Output.ResultsDB != "ledger.db" {
		t.Fatalf("results db = %q", cfg.Output.ResultsDB)
	}
}
