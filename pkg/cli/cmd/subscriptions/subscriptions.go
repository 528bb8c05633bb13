// Copyright 2026 The IUDX Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package subscriptions implements the subscription-migration command.
package subscriptions

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/migration"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "subscription-migration-config.json"

type options struct {
	flags.Options
	write bool
}

// Command returns the subscription-migration command.
func Command() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "subscription-migration",
		Short: "Backfill subscription columns from the catalogue",
	}
	flags.AddOptions(&opts.Options, cmd, DefaultConfig)
	cmd.PersistentFlags().BoolVar(&opts.write, "write", true, "enable migration writes. if disabled, the tool still prints a summary of what would be migrated.")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "dataset",
			Short: "Set dataset_name, dataset_json and user_id of every subscription",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, (*migration.Subscriptions).Dataset)
			},
		},
		&cobra.Command{
			Use:   "ownership",
			Short: "Set provider_id, resource_group, delegator_id and item_type where missing",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, opts, (*migration.Subscriptions).Ownership)
			},
		},
	)
	return cmd
}

func run(cmd *cobra.Command, opts *options, migrate func(*migration.Subscriptions, context.Context) (migration.OutcomeLog, error)) error {
	cfg := config.NewSubscriptionMigration()
	if err := opts.Load(cfg); err != nil {
		return err
	}
	log, err := opts.Logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	gdb, err := db.Open(cmd.Context(), cfg.Database(), log)
	if err != nil {
		return err
	}
	defer db.Close(gdb) //nolint:errcheck

	cat, err := catalogue.NewClient(cfg.CatalogueURL)
	if err != nil {
		return err
	}

	m := &migration.Subscriptions{
		Logger:    log,
		DB:        gdb,
		Catalogue: cat,
		Table:     cfg.SubscriptionsTable,
		Write:     opts.write,
	}
	out, err := migrate(m, cmd.Context())
	if perr := out.Print(cmd.OutOrStdout()); perr != nil {
		log.Errorw("failed to print outcome", "error", perr)
	}
	return err
}
