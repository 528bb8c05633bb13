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

// Package monitoring implements the monitoring-binding command.
package monitoring

import (
	"github.com/spf13/cobra"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/migration"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "subscription-monitoring-config.json"

type binder interface {
	migration.Binder
	Close() error
}

// Replaced in tests.
var (
	openDB     = db.Open
	closeDB    = db.Close
	dialBinder = func(cfg config.Broker) (binder, error) {
		b, err := broker.DialAMQP(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
)

// Command returns the monitoring-binding command.
func Command() *cobra.Command {
	opts := &flags.Options{}
	cmd := &cobra.Command{
		Use:   "monitoring-binding",
		Short: "Bind every adaptor exchange to the monitoring queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewMonitoringBinding()
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

			b, err := dialBinder(cfg.Broker())
			if err != nil {
				return err
			}
			defer b.Close() //nolint:errcheck

			m := &migration.Monitoring{
				Logger: log,
				DB:     gdb,
				Binder: b,
				Queue:  cfg.DataBrokerQueue,
				Table:  cfg.AdaptorsTable,
				Out:    cmd.OutOrStdout(),
			}
			_, err = m.Run(cmd.Context())
			return err
		},
	}
	flags.AddOptions(opts, cmd, DefaultConfig)
	return cmd
}
