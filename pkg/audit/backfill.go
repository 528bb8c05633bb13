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

// Package audit copies metering entries from the immutable ledger into the
// relational audit table.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/ledger"
	"github.com/datakaveri/rs-maintenance/pkg/metrics"
)

// WindowLength is the span of ledger time copied per window.
const WindowLength = 24 * time.Hour

// Backfill copies ledger rows into Table, one window at a time, walking
// backwards from the most recent window.
type Backfill struct {
	Logger      *zap.SugaredLogger
	Ledger      ledger.Reader
	DB          *gorm.DB
	Checkpoints *CheckpointStore
	Clock       clockwork.Clock
	Metrics     *metrics.Recorder

	LedgerTable string
	Table       string
	PageSize    int
}

// Summary counts the work done by a backfill.
type Summary struct {
	Windows  int
	Pages    int
	Read     int
	Inserted int64
}

// Run copies the rows with end < epochtime <= start in windows of
// WindowLength, most recent first. A saved checkpoint is resumed before
// moving on to the windows older than it, and cleared once every window is
// copied.
func (b *Backfill) Run(ctx context.Context, start, end int64) (Summary, error) {
	var s Summary
	cp, err := b.Checkpoints.Load(ctx)
	if err != nil {
		return s, err
	}
	if cp != nil {
		b.Logger.Infow("resuming from checkpoint", "starttime", cp.StartTime, "endtime", cp.EndTime, "lastId", cp.LastID)
		if err := b.RunWindow(ctx, ledger.Window{Start: cp.StartTime, End: cp.EndTime}, cp.LastID, &s); err != nil {
			return s, err
		}
		start = cp.EndTime
	}

	step := WindowLength.Milliseconds()
	for lower := start - step; lower >= end; start, lower = lower, lower-step {
		if err := b.RunWindow(ctx, ledger.Window{Start: start, End: lower}, "", &s); err != nil {
			return s, err
		}
	}

	if err := b.Checkpoints.Clear(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// RunWindow copies the rows of w whose id sorts after the given id. Pages
// are read in id order until one comes back shorter than PageSize. On error
// the window and the last copied id are saved as the checkpoint.
func (b *Backfill) RunWindow(ctx context.Context, w ledger.Window, after string, s *Summary) error {
	began := b.Clock.Now()
	var inserted int64
	for {
		rows, err := b.Ledger.ReadPage(ctx, ledger.PageQuery{
			Table:   b.LedgerTable,
			Window:  w,
			AfterID: after,
			Limit:   b.PageSize,
		})
		if err != nil {
			return b.fail(ctx, w, after, err)
		}
		s.Pages++
		if len(rows) == 0 {
			b.Metrics.CountAuditPage(0)
			break
		}

		n, err := b.insert(ctx, rows)
		if err != nil {
			return b.fail(ctx, w, after, err)
		}
		b.Metrics.CountAuditPage(n)
		b.Logger.Debugw("batch inserted", "window", w.String(), "read", len(rows), "inserted", n)
		s.Read += len(rows)
		s.Inserted += n
		inserted += n
		after = rows[len(rows)-1].ID
		if len(rows) < b.PageSize {
			break
		}
	}
	s.Windows++
	b.Logger.Infow("window copied",
		"window", w.String(),
		"inserted", inserted,
		"took", durafmt.Parse(b.Clock.Since(began)).LimitFirstN(2).String())
	return nil
}

func (b *Backfill) insert(ctx context.Context, rows []ledger.Row) (int64, error) {
	records := make([]db.AuditRecord, len(rows))
	for i, r := range rows {
		records[i] = db.AuditRecord{
			ID:         r.ID,
			API:        r.API,
			UserID:     r.UserID,
			EpochTime:  r.EpochTime,
			ISOTime:    r.ISOTime,
			ResourceID: r.ResourceID,
			ProviderID: r.ProviderID,
			Size:       r.Size,
			Time:       NormalizeTime(r.ISOTime, r.EpochTime),
		}
	}
	res := b.DB.WithContext(ctx).Table(b.Table).Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", b.Table, res.Error)
	}
	return res.RowsAffected, nil
}

func (b *Backfill) fail(ctx context.Context, w ledger.Window, after string, err error) error {
	err = fmt.Errorf("backfill of window %s stopped after id %q: %w", w, after, err)
	cp := Checkpoint{StartTime: w.Start, EndTime: w.End, LastID: after}
	// The checkpoint is written even when ctx is what stopped the window.
	if serr := b.Checkpoints.Save(context.WithoutCancel(ctx), cp); serr != nil {
		return errors.Join(err, serr)
	}
	b.Logger.Errorw("backfill stopped, rerun to resume", "error", err, "starttime", cp.StartTime, "endtime", cp.EndTime, "lastId", cp.LastID)
	return err
}
