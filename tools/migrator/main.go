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

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/logger"
)

func main() {
	if err := command().Execute(); err != nil {
		os.Exit(1)
	}
}

// command returns the migrator command. Every flag can also be set from
// the environment, e.g. DB_PASSWORD for --db-password.
func command() *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "migrator",
		Short: "Create the tables and columns the maintenance tools use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(v.GetString("log-level"))
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			gdb, err := db.Open(cmd.Context(), config.Database{
				Host:     v.GetString("db-host"),
				Port:     v.GetInt("db-port"),
				Name:     v.GetString("db-name"),
				User:     v.GetString("db-user"),
				Password: v.GetString("db-password"),
				SSLMode:  v.GetString("db-sslmode"),
			}, log)
			if err != nil {
				return err
			}
			defer db.Close(gdb) //nolint:errcheck

			m := NewMigrator(gdb, log, v.GetBool("dry-run"), cmd.OutOrStdout())
			log.Info("Starting migration..")
			if err := m.Migrate(
				Table{Name: v.GetString("subscriptions-table"), Model: &db.Subscription{}},
				Table{Name: v.GetString("adaptors-table"), Model: &db.AdaptorDetail{}},
				Table{Name: v.GetString("audit-table"), Model: &db.AuditRecord{}},
			); err != nil {
				return err
			}
			log.Info("Migration completed!!")
			return nil
		},
	}

	f := cmd.Flags()
	f.String("db-host", "localhost", "database host")
	f.Int("db-port", 5432, "database port")
	f.String("db-name", "iudx", "database name")
	f.String("db-user", "", "database user")
	f.String("db-password", "", "database password")
	f.String("db-sslmode", "disable", "database sslmode")
	f.String("subscriptions-table", db.SubscriptionsTable, "subscriptions table, as configured in subscriptionsTable")
	f.String("adaptors-table", db.AdaptorsTable, "adaptor details table, as configured in adaptorsTable")
	f.String("audit-table", db.AuditTable, "audit table, as configured in postgresTableName")
	f.String("log-level", "info", "log level")
	f.Bool("dry-run", false, "print the statements instead of executing them")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	return cmd
}
