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

// Package test provides a throwaway database for package tests.
package test

import (
	"os"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/datakaveri/rs-maintenance/pkg/db"

	// Inject sqlite error checking.
	_ "github.com/datakaveri/rs-maintenance/pkg/db/errors/sqlite"
)

// NewDB returns a sqlite backed database holding the resource server tables
// under their default names.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	tmpfile, err := os.CreateTemp(t.TempDir(), "testdb")
	if err != nil {
		t.Fatalf("failed to create temp file for db: %v", err)
	}
	t.Log("test database: ", tmpfile.Name())
	tmpfile.Close()

	// Open DB using gorm to use all the nice gorm tools.
	gdb, err := gorm.Open(sqlite.Open(tmpfile.Name()), &gorm.Config{
		// Configure verbose db logging to use testing logger.
		// This will show all SQL statements made if the test fails.
		Logger: logger.New(&testLogger{t: t}, logger.Config{
			LogLevel: logger.Info,
		}),
	})
	if err != nil {
		t.Fatalf("failed to open the test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := gdb.AutoMigrate(&db.Subscription{}, &db.AdaptorDetail{}, &db.AuditRecord{}); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
	return gdb
}

type testLogger struct {
	t *testing.T
}

func (t *testLogger) Printf(format string, args ...any) {
	t.t.Logf(format, args...)
}
