// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/skycast/skycast/internal/config"
	"github.com/skycast/skycast/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending database migrations against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
			}

			cmd.Println("Running migrations...")
			if err := runMigrations(cfg.Database.URL); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	return cmd
}

func runMigrations(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = migrator.Close() //nolint:errcheck // nothing actionable on close failure
	}()

	return migrator.Up()
}
