package main

import (
	"context"
	"fmt"

	"gryork/internal/audit"
	"gryork/internal/seed"
	"gryork/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Sync NBFC partners with the seed list",
	Action: func(c *cli.Context) error {
		config, err := loadConfig(c)
		if err != nil {
			return err
		}
		logger, err := newLogger(config)
		if err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := connect(ctx, config)
		if err != nil {
			return err
		}
		defer pool.Close()

		logger.Info("connected to database")

		auditor := audit.NewWriter(store.NewAuditLogRepository(pool), logger)
		if _, err := seed.SeedNBFCs(ctx, store.NewNBFCRepository(pool), seed.Partners, auditor, logger); err != nil {
			return fmt.Errorf("failed to seed nbfcs: %w", err)
		}

		return nil
	},
}
