package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
	"github.com/hik2833/CSC580WeekSix/pkg/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "experiment YAML file (defaults apply when omitted)",
			Sources:     cli.EnvVars("TOXSEARCH_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "shorthand for --log-level=debug",
			Destination: &verbose,
		},
	}
}

// overrides are the per-command flags that win over the config file.
type overrides struct {
	source      string
	path        string
	task        string
	outDir      string
	seeds       []int64
	workers     int
	trees       int
	splitSeed   int64
	resultsDB   string
	metricsFile string
	noPlots     bool
}

func datasetFlags(o *overrides) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Usage:       "dataset source (file, s3)",
			Destination: &o.source,
		},
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "dataset path (download target for s3)",
			Destination: &o.path,
		},
		&cli.StringFlag{
			Name:        "task",
			Aliases:     []string{"t"},
			Usage:       "Tox21 assay column, e.g. NR-AR or SR-p53",
			Destination: &o.task,
		},
		&cli.Int64Flag{
			Name:        "split-seed",
			Usage:       "seed of the train/valid/test permutation",
			Destination: &o.splitSeed,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output directory",
			Destination: &o.outDir,
		},
		&cli.IntFlag{
			Name:        "trees",
			Usage:       "random forest size",
			Destination: &o.trees,
		},
		&cli.BoolFlag{
			Name:        "no-plots",
			Usage:       "skip PNG plots",
			Destination: &o.noPlots,
		},
	}
}

func searchFlags(o *overrides) []cli.Flag {
	return []cli.Flag{
		&cli.Int64SliceFlag{
			Name:        "seeds",
			Usage:       "seeds each configuration is trained with",
			Destination: &o.seeds,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "concurrent trials (1 runs them in order)",
			Destination: &o.workers,
		},
		&cli.StringFlag{
			Name:        "results-db",
			Usage:       "SQLite trial ledger, relative to --out",
			Destination: &o.resultsDB,
		},
		&cli.StringFlag{
			Name:        "metrics-file",
			Usage:       "Prometheus textfile, relative to --out",
			Destination: &o.metricsFile,
		},
	}
}

// apply copies every explicitly set flag into cfg.
func (o *overrides) apply(c *cli.Command, cfg *config.Config) {
	if c.IsSet("source") {
		cfg.Dataset.Source = o.source
	}
	if c.IsSet("data") {
		cfg.Dataset.Path = o.path
	}
	if c.IsSet("task") {
		cfg.Dataset.Task = o.task
	}
	if c.IsSet("split-seed") {
		cfg.Dataset.Split.Seed = o.splitSeed
	}
	if c.IsSet("out") {
		cfg.Output.Dir = o.outDir
	}
	if c.IsSet("trees") {
		cfg.Baseline.Forest.Trees = o.trees
	}
	if c.IsSet("no-plots") {
		cfg.Output.Plots = !o.noPlots
	}
	if c.IsSet("seeds") {
		cfg.Search.Seeds = o.seeds
	}
	if c.IsSet("workers") {
		cfg.Search.Workers = o.workers
	}
	if c.IsSet("results-db") {
		cfg.Output.ResultsDB = o.resultsDB
	}
	if c.IsSet("metrics-file") {
		cfg.Output.MetricsFile = o.metricsFile
	}
}

// setup loads the config file, applies flag overrides and opens the logger.
func setup(c *cli.Command, o *overrides) (config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	if o != nil {
		o.apply(c, &cfg)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logger.Open(os.Stderr, cfg.Log.Format, cfg.Log.Level), nil
}
