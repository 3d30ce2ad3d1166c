package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/experiment"
)

func baselineCmd() *cli.Command {
	o := &overrides{}
	return &cli.Command{
		Name:    "baseline",
		Aliases: []string{"baselines"},
		Usage:   "train and score the baselines only",
		Flags:   datasetFlags(o),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := setup(cmd, o)
			if err != nil {
				return err
			}
			_, err = experiment.Baselines(ctx, cfg, experiment.Deps{Log: log, Out: os.Stdout})
			return err
		},
	}
}
