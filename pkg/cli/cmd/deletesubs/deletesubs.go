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

// Package deletesubs implements the delete-subs command.
package deletesubs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/metrics"
	"github.com/datakaveri/rs-maintenance/pkg/sweep"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "/home/script-config.json"

// Command returns the delete-subs command.
func Command() *cobra.Command {
	opts := &flags.Options{}
	var (
		once        bool
		metricsPort int
	)
	cmd := &cobra.Command{
		Use:   "delete-subs",
		Short: "Delete expired subscriptions and their broker bindings",
		Long: `Delete the subscriptions whose expiry has passed, after removing the
bindings of their queues on the broker. Runs every schedule_time minutes
until interrupted, or once with --once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewDeleteSubs()
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

			gdb, err := db.Open(ctx, cfg.Database(), log)
			if err != nil {
				return err
			}
			defer db.Close(gdb) //nolint:errcheck

			b, err := broker.NewManagementClient(cfg.Broker())
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			recorder, err := metrics.NewRecorder(reg)
			if err != nil {
				return err
			}
			agent := sweep.NewAgent(gdb, b, sweep.ConfigFrom(cfg), log, sweep.WithMetrics(recorder))

			if once {
				_, err := agent.RunOnce(ctx)
				return err
			}

			if metricsPort > 0 {
				srv := serveMetrics(log, reg, metricsPort)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx) //nolint:errcheck
				}()
			}

			if err := agent.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			log.Info("stopping, waiting for a running sweep")
			agent.Stop()
			return nil
		},
	}
	flags.AddOptions(opts, cmd, DefaultConfig)
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "serve prometheus metrics on this port, 0 disables")
	return cmd
}

func serveMetrics(log *zap.SugaredLogger, reg *prometheus.Registry, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("serving metrics", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	return srv
}
