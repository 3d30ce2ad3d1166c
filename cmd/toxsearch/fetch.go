package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/experiment"
)

func fetchCmd() *cli.Command {
	var (
		dest      string
		endpoint  string
		pathStyle bool
		force     bool
	)
	return &cli.Command{
		Name:  "fetch",
		Usage: "download the dataset object from S3",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dest", Usage: "local path (defaults to dataset.path)", Destination: &dest},
			&cli.StringFlag{Name: "endpoint", Usage: "S3-compatible endpoint URL", Destination: &endpoint},
			&cli.BoolFlag{Name: "path-style", Usage: "use path-style addressing", Destination: &pathStyle},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "download even if the file exists", Destination: &force},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			ds := cfg.Dataset
			if dest != "" {
				ds.Path = dest
			}
			if endpoint != "" {
				ds.S3.Endpoint = endpoint
			}
			if pathStyle {
				ds.S3.PathStyle = true
			}
			path, err := experiment.Fetch(ctx, ds, force, log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, path)
			return err
		},
	}
}
