package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
)

func initCmd() *cli.Command {
	var force bool
	return &cli.Command{
		Name:      "init",
		Usage:     "write the default experiment config",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite an existing file", Destination: &force},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				path = "toxsearch.yaml"
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Errorf("%s exists (use --force to overwrite)", path)
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.Root().Writer, "wrote", path)
			return err
		},
	}
}
