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

package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/logger"

	// Inject postgres error checking.
	_ "github.com/datakaveri/rs-maintenance/pkg/db/errors/postgres"
)

// Connection retry settings used by Open.
var (
	ConnectAttempts   uint = 5
	ConnectRetryDelay      = 2 * time.Second
)

// DSN returns the keyword/value connection string for c.
// DSN derived from https://pkg.go.dev/gorm.io/driver/postgres
func DSN(c config.Database) string {
	parts := []string{
		"host=" + quote(c.Host),
		"user=" + quote(c.User),
		"password=" + quote(c.Password),
		"dbname=" + quote(c.Name),
		fmt.Sprintf("port=%d", c.Port),
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+quote(c.SSLMode))
	}
	if c.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "'", `\'`)
	return "'" + v + "'"
}

// Open connects to the postgres database described by c, retrying while the
// server is unreachable. SQL statements are only logged at debug level.
func Open(ctx context.Context, c config.Database, log *zap.SugaredLogger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if logger.IsDebug(log) {
		gormConfig.Logger = gormlogger.New(zapWriter{log}, gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Info,
		})
	}

	var gdb *gorm.DB
	err := retry.Do(func() error {
		var err error
		gdb, err = gorm.Open(postgres.Open(DSN(c)), gormConfig)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(ConnectAttempts),
		retry.Delay(ConnectRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warnw("database not reachable, retrying", "database", c.String(), "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c, err)
	}
	log.Debugw("connected to database", "database", c.String())
	return gdb, nil
}

// Close releases the connection pool of gdb.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Debugf(format, args...)
}
