package main

import (
	"fmt"

	"gryork/internal/utils"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Generate IDs for use in seed files",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "ID length",
			Value: 32,
		},
	},
	Action: func(c *cli.Context) error {
		for range c.Int("count") {
			fmt.Fprintln(c.App.Writer, utils.NanoIDSize(c.Int("size")))
		}
		return nil
	},
}
