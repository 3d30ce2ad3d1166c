package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/hik2833/CSC580WeekSix/pkg/nn"
)

type gridEntry struct {
	Index  int       `json:"index"`
	Params nn.Params `json:"params"`
}

func gridCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:  "grid",
		Usage: "list the network configurations the search would train",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, _, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			configs := cfg.Configs()
			w := cmd.Root().Writer
			if asJSON {
				entries := make([]gridEntry, len(configs))
				for i, p := range configs {
					entries[i] = gridEntry{Index: i, Params: p}
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tconfiguration")
			for i, p := range configs {
				fmt.Fprintf(tw, "%d\t%s\n", i, p)
			}
			fmt.Fprintf(tw, "\t%d configurations x %d seeds\n", len(configs), len(cfg.Search.Seeds))
			return tw.Flush()
		},
	}
}
