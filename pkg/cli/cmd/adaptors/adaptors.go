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

// Package adaptors implements the adaptors-migration command.
package adaptors

import (
	"github.com/spf13/cobra"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/migration"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "adaptors_details_migration_config.json"

// Replaced in tests.
var (
	openDB  = db.Open
	closeDB = db.Close
)

// Command returns the adaptors-migration command.
func Command() *cobra.Command {
	opts := &flags.Options{}
	var write bool
	cmd := &cobra.Command{
		Use:   "adaptors-migration",
		Short: "Create the adaptor details of every adaptor exchange",
		Long: `Create an adaptor details row for every exchange of the vhost with at
least four path segments that the catalogue knows about. The owner is the
first user allowed to write to the exchange, or else the user who created
it. Rows that already exist are reported and left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewAdaptorsMigration()
			if err := opts.Load(cfg); err != nil {
				return err
			}
			log, err := opts.Logger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			gdb, err := openDB(cmd.Context(), cfg.Database(), log)
			if err != nil {
				return err
			}
			defer closeDB(gdb) //nolint:errcheck

			b, err := broker.NewManagementClient(cfg.Broker())
			if err != nil {
				return err
			}
			cat, err := catalogue.NewClient(cfg.CatalogueURL)
			if err != nil {
				return err
			}

			m := &migration.Adaptors{
				Logger:          log,
				DB:              gdb,
				Broker:          b,
				Catalogue:       cat,
				Vhost:           cfg.Vhost,
				PermissionVhost: cfg.PermissionVhost,
				Table:           cfg.AdaptorsTable,
				Write:           write,
			}
			out, err := m.Run(cmd.Context())
			if perr := out.Print(cmd.OutOrStdout()); perr != nil {
				log.Errorw("failed to print outcome", "error", perr)
			}
			return err
		},
	}
	flags.AddOptions(opts, cmd, DefaultConfig)
	cmd.Flags().BoolVar(&write, "write", true, "enable migration writes. if disabled, the tool still prints a summary of what would be migrated.")
	return cmd
}
