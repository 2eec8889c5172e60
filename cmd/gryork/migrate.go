package main

import (
	"context"

	"gryork/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply the database schema",
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

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		logger.Info("schema applied")
		return nil
	},
}
