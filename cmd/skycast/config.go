// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/skycast/skycast/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configuration file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return oops.Code("CONFIG_LOAD_FAILED").With("path", args[0]).Wrap(err)
			}
			if err := config.ValidateSchema(data); err != nil {
				return err
			}

			// Schema validation catches shape errors; Load + Validate
			// catches semantic ones like a short token secret.
			cfg, err := config.Load(args[0], nil)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			cmd.Printf("%s is valid\n", args[0])
			return nil
		},
	}
}
