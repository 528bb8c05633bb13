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

// Package auditmigration implements the audit-migration command.
package auditmigration

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hako/durafmt"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datakaveri/rs-maintenance/pkg/audit"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/ledger"
	"github.com/datakaveri/rs-maintenance/pkg/metrics"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "immudb_mig_config.json"

// PushJob is the job label of the counters pushed to the Pushgateway.
const PushJob = "audit_migration"

type ledgerSession interface {
	ledger.Reader
	Close(ctx context.Context) error
}

// Replaced in tests.
var (
	openDB     = db.Open
	closeDB    = db.Close
	dialLedger = func(ctx context.Context, cfg ledger.Config) (ledgerSession, error) {
		c, err := ledger.Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	newRegistry = prometheus.NewRegistry
)

// Command returns the audit-migration command.
func Command() *cobra.Command {
	opts := &flags.Options{}
	cmd := &cobra.Command{
		Use:   "audit-migration",
		Short: "Copy metering entries from the ledger into the audit table",
		Long: `Copy the ledger entries with endtime < epochtime <= starttime into the
audit table, one day at a time from starttime backwards. When a copy fails
the window and the last copied id are saved as a checkpoint; rerunning the
command resumes from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewAuditMigration()
			if err := opts.Load(cfg); err != nil {
				return err
			}
			log, err := opts.Logger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gdb, err := openDB(ctx, cfg.Database(), log)
			if err != nil {
				return err
			}
			defer closeDB(gdb) //nolint:errcheck

			l, err := dialLedger(ctx, ledger.Config{
				Host:     cfg.ImmudbHost,
				Port:     cfg.ImmudbPort,
				User:     cfg.ImmudbUserName,
				Password: cfg.ImmudbPassword,
				Database: cfg.ImmudbDatabase,
			})
			if err != nil {
				return err
			}
			defer l.Close(context.WithoutCancel(ctx)) //nolint:errcheck

			checkpoints, err := audit.OpenCheckpointStore(ctx, cfg.CheckpointBucket, cfg.CheckpointKey)
			if err != nil {
				return err
			}
			defer checkpoints.Close() //nolint:errcheck

			reg := newRegistry()
			recorder, err := metrics.NewRecorder(reg)
			if err != nil {
				return err
			}

			clock := clockwork.NewRealClock()
			b := &audit.Backfill{
				Logger:      log,
				Ledger:      l,
				DB:          gdb,
				Checkpoints: checkpoints,
				Clock:       clock,
				Metrics:     recorder,
				LedgerTable: cfg.ImmudbTableName,
				Table:       cfg.PostgresTableName,
				PageSize:    cfg.PageSize,
			}
			began := clock.Now()
			s, err := b.Run(ctx, cfg.StartTime, cfg.EndTime)
			log.Infow("audit migration finished",
				"windows", s.Windows,
				"pages", s.Pages,
				"read", s.Read,
				"inserted", s.Inserted,
				"took", durafmt.Parse(clock.Since(began)).LimitFirstN(2).String())
			if err != nil {
				log.Errorw("audit migration stopped, rerun to resume from the checkpoint", "error", err)
			}
			if cfg.PushgatewayURL != "" {
				pushMetrics(context.WithoutCancel(ctx), log, reg, cfg.PushgatewayURL)
			}
			return err
		},
	}
	flags.AddOptions(opts, cmd, DefaultConfig)
	return cmd
}

// pushMetrics replaces the counters of PushJob on the Pushgateway at url.
// A failed push is logged and does not fail the run.
func pushMetrics(ctx context.Context, log *zap.SugaredLogger, g prometheus.Gatherer, url string) {
	if err := push.New(url, PushJob).Gatherer(g).PushContext(ctx); err != nil {
		log.Errorw("failed to push metrics", "pushgateway", url, "error", err)
		return
	}
	log.Debugw("metrics pushed", "pushgateway", url, "job", PushJob)
}
