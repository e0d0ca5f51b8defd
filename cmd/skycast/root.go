// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the SkyCast CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skycast",
		Short: "SkyCast - weather web app backend",
		Long: `SkyCast is the backend for a weather web application: account
management with email verification and password reset, a weather and
geocoding proxy in front of Open-Meteo, and per-user favorites and
lookup history.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
