package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/experiment"
)

func runCmd() *cli.Command {
	o := &overrides{}
	return &cli.Command{
		Name:  "run",
		Usage: "train the baselines, search the network grid and report on the test split",
		Flags: append(datasetFlags(o), searchFlags(o)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := setup(cmd, o)
			if err != nil {
				return err
			}
			_, err = experiment.Run(ctx, cfg, experiment.Deps{Log: log, Out: os.Stdout})
			return err
		},
	}
}
