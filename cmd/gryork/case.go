package main

import (
	"context"
	"fmt"
	"time"

	"gryork/internal/sla"
	"gryork/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var caseCommand = &cli.Command{
	Name:  "case",
	Usage: "Operator tools for individual cases",
	Subcommands: []*cli.Command{
		{
			Name:      "inspect",
			Usage:     "Print a case with its timeline, quotations and SLA report",
			ArgsUsage: "<case-id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "no-color",
					Usage: "Disable colored output",
				},
				&cli.BoolFlag{
					Name:  "sla",
					Usage: "Include the SLA report",
					Value: true,
				},
			},
			Action: inspectCase,
		},
	},
}

func inspectCase(c *cli.Context) error {
	caseID := c.Args().First()
	if caseID == "" {
		return fmt.Errorf("case id is required")
	}

	config, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	found, err := store.NewCaseRepository(pool).Case(ctx, caseID)
	if err != nil {
		return err
	}

	printer := pp.New()
	printer.SetOutput(c.App.Writer)
	printer.SetColoringEnabled(!c.Bool("no-color"))

	printer.Println(found)

	if c.Bool("sla") {
		tracker, err := sla.LoadTracker(config.SLAConfigPath)
		if err != nil {
			return err
		}
		printer.Println(tracker.Evaluate(found, time.Now().UTC()))
	}

	return nil
}
