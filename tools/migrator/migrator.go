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
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// printSQLLogger writes every statement it traces to out.
type printSQLLogger struct {
	logger.Interface
	out io.Writer
}

func (l *printSQLLogger) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	fmt.Fprintf(l.out, "%s;\n", sql)
}

// Migrator brings the resource server tables up to the models. It only
// adds: missing tables, columns and indexes are created, existing columns
// are never altered or dropped.
type Migrator struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	dryRun bool
	out    io.Writer
}

// NewMigrator returns a Migrator for db. In dry run mode the statements are
// written to out instead of being executed.
func NewMigrator(db *gorm.DB, log *zap.SugaredLogger, dryRun bool, out io.Writer) *Migrator {
	return &Migrator{db: db, log: log, dryRun: dryRun, out: out}
}

// Table is a model kept under Name, which may differ from the model's
// default table name.
type Table struct {
	Name  string
	Model interface{}
}

// Migrate brings each table up to its model.
func (m *Migrator) Migrate(tables ...Table) error {
	queryTx := m.db.Session(&gorm.Session{})
	execTx := queryTx
	if m.dryRun {
		execTx = m.db.Session(&gorm.Session{DryRun: true, Logger: &printSQLLogger{Interface: m.db.Logger, out: m.out}})
	}
	cache := &sync.Map{}

	for _, t := range tables {
		s, err := schema.Parse(t.Model, cache, m.db.NamingStrategy)
		if err != nil {
			return fmt.Errorf("failed to parse model %T: %w", t.Model, err)
		}
		name := t.Name
		if name == "" {
			name = s.Table
		}
		query := queryTx.Table(name).Migrator()
		exec := execTx.Table(name).Migrator()

		if !query.HasTable(name) {
			m.log.Infow("creating table", "table", name)
			if err := exec.CreateTable(t.Model); err != nil {
				return fmt.Errorf("failed to create table %s: %w", name, err)
			}
			continue
		}

		for _, col := range s.DBNames {
			if query.HasColumn(t.Model, col) {
				m.log.Debugw("column exists", "table", name, "column", col)
				continue
			}
			m.log.Infow("adding column", "table", name, "column", col)
			if err := exec.AddColumn(t.Model, col); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", name, col, err)
			}
		}

		for _, idx := range s.ParseIndexes() {
			if query.HasIndex(t.Model, idx.Name) {
				continue
			}
			m.log.Infow("creating index", "table", name, "index", idx.Name)
			if err := exec.CreateIndex(t.Model, idx.Name); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
			}
		}
	}
	return nil
}
