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

package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gocloud.dev/blob/memblob"
	"gorm.io/gorm"

	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	"github.com/datakaveri/rs-maintenance/pkg/db/test"
	"github.com/datakaveri/rs-maintenance/pkg/ledger"
)

const (
	dayMillis = int64(86400000)
	start     = int64(1700086400000)
)

type fakeLedger struct {
	rows    []ledger.Row
	queries []ledger.PageQuery
	// failAt is the 1-based read that fails, 0 for none.
	failAt int
}

func (f *fakeLedger) ReadPage(_ context.Context, q ledger.PageQuery) ([]ledger.Row, error) {
	f.queries = append(f.queries, q)
	if len(f.queries) == f.failAt {
		return nil, errors.New("ledger unavailable")
	}
	var out []ledger.Row
	for _, r := range f.rows {
		if !q.Window.Contains(r.EpochTime) || r.ID <= q.AfterID {
			continue
		}
		out = append(out, r)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// rowsIn returns n rows spread over w with ids sorting in creation order.
func rowsIn(w ledger.Window, prefix string, n int) []ledger.Row {
	rows := make([]ledger.Row, n)
	for i := range rows {
		epoch := w.Start - int64(i)*1000
		rows[i] = ledger.Row{
			ID:         fmt.Sprintf("%s-%04d", prefix, i),
			API:        "/ngsi-ld/v1/entities",
			UserID:     "u1",
			EpochTime:  epoch,
			ISOTime:    "",
			ResourceID: "r1",
			ProviderID: "p1",
			Size:       int64(i),
		}
	}
	return rows
}

func newBackfill(t *testing.T, gdb *gorm.DB, l ledger.Reader, store *CheckpointStore) *Backfill {
	t.Helper()
	return &Backfill{
		Logger:      zap.NewNop().Sugar(),
		Ledger:      l,
		DB:          gdb,
		Checkpoints: store,
		Clock:       clockwork.NewFakeClock(),
		LedgerTable: "rsaudit",
		Table:       db.AuditTable,
		PageSize:    config.DefaultPageSize,
	}
}

func count(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Table(db.AuditTable).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRunWindowPagination(t *testing.T) {
	ctx := context.Background()
	gdb := test.NewDB(t)
	w := ledger.Window{Start: start, End: start - dayMillis}
	l := &fakeLedger{rows: rowsIn(w, "id", 2500)}
	b := newBackfill(t, gdb, l, NewCheckpointStore(memblob.OpenBucket(nil), "time_config.json"))

	var s Summary
	if err := b.RunWindow(ctx, w, "", &s); err != nil {
		t.Fatalf("RunWindow() = %v", err)
	}
	want := Summary{Windows: 1, Pages: 3, Read: 2500, Inserted: 2500}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("summary -want, +got: %s", diff)
	}
	var afterIDs []string
	for _, q := range l.queries {
		afterIDs = append(afterIDs, q.AfterID)
	}
	if diff := cmp.Diff([]string{"", "id-0998", "id-1997"}, afterIDs); diff != "" {
		t.Errorf("cursors -want, +got: %s", diff)
	}
	if got := count(t, gdb); got != 2500 {
		t.Errorf("%d rows copied, want 2500", got)
	}

	// Rerunning copies nothing new.
	s = Summary{}
	if err := b.RunWindow(ctx, w, "", &s); err != nil {
		t.Fatalf("second RunWindow() = %v", err)
	}
	if s.Inserted != 0 || s.Read != 2500 {
		t.Errorf("second run summary = %+v, want 2500 read and 0 inserted", s)
	}
	if got := count(t, gdb); got != 2500 {
		t.Errorf("%d rows after rerun, want 2500", got)
	}
}

func TestRunWindowNormalizesTime(t *testing.T) {
	gdb := test.NewDB(t)
	w := ledger.Window{Start: 1700019800500, End: 1700000000000}
	l := &fakeLedger{rows: []ledger.Row{{ID: "a", EpochTime: 1700019800500, ISOTime: "2023-11-15T09:13:20.5+05:30[Asia/Kolkata]"}}}
	b := newBackfill(t, gdb, l, NewCheckpointStore(memblob.OpenBucket(nil), "cp"))

	if err := b.RunWindow(context.Background(), w, "", &Summary{}); err != nil {
		t.Fatalf("RunWindow() = %v", err)
	}
	var got db.AuditRecord
	if err := gdb.Table(db.AuditTable).First(&got, "id = ?", "a").Error; err != nil {
		t.Fatal(err)
	}
	if want := "2023-11-15 03:43:20"; got.Time.UTC().Format("2006-01-02 15:04:05") != want {
		t.Errorf("time = %s, want %s", got.Time, want)
	}
	if got.ISOTime != "2023-11-15T09:13:20.5+05:30[Asia/Kolkata]" {
		t.Errorf("isotime = %s, want it kept as read", got.ISOTime)
	}
}

func TestCheckpointSavedAndResumed(t *testing.T) {
	ctx := context.Background()
	gdb := test.NewDB(t)
	store := NewCheckpointStore(memblob.OpenBucket(nil), "time_config.json")
	w := ledger.Window{Start: start, End: start - dayMillis}
	rows := rowsIn(w, "id", 2500)

	failing := &fakeLedger{rows: rows, failAt: 2}
	if _, err := newBackfill(t, gdb, failing, store).Run(ctx, start, start-dayMillis); err == nil {
		t.Fatal("Run() = nil, want error")
	}
	cp, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := &Checkpoint{StartTime: w.Start, EndTime: w.End, LastID: "id-0998"}
	if diff := cmp.Diff(want, cp); diff != "" {
		t.Fatalf("checkpoint -want, +got: %s", diff)
	}
	if got := count(t, gdb); got != 999 {
		t.Errorf("%d rows copied before the failure, want 999", got)
	}

	healthy := &fakeLedger{rows: rows}
	s, err := newBackfill(t, gdb, healthy, store).Run(ctx, start, start-dayMillis)
	if err != nil {
		t.Fatalf("resumed Run() = %v", err)
	}
	if got := healthy.queries[0].AfterID; got != "id-0998" {
		t.Errorf("resumed at %q, want id-0998", got)
	}
	if s.Inserted != 1501 {
		t.Errorf("resumed run inserted %d, want 1501", s.Inserted)
	}
	if got := count(t, gdb); got != 2500 {
		t.Errorf("%d rows copied, want 2500", got)
	}
	if cp, _ := store.Load(ctx); cp != nil {
		t.Errorf("checkpoint %+v left after a complete run", cp)
	}
}

func TestCheckpointSavedOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	gdb := test.NewDB(t)
	store := NewCheckpointStore(memblob.OpenBucket(nil), "time_config.json")
	w := ledger.Window{Start: start, End: start - dayMillis}

	b := newBackfill(t, gdb, &fakeLedger{rows: rowsIn(w, "id", 10)}, store)
	b.Table = "missing_table"
	if err := b.RunWindow(ctx, w, "", &Summary{}); err == nil {
		t.Fatal("RunWindow() = nil, want error")
	}
	cp, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Checkpoint{StartTime: w.Start, EndTime: w.End}, cp); diff != "" {
		t.Errorf("checkpoint -want, +got: %s", diff)
	}
}

func TestRunWalksBackwardByDay(t *testing.T) {
	ctx := context.Background()
	gdb := test.NewDB(t)
	var rows []ledger.Row
	for d := int64(0); d < 4; d++ {
		w := ledger.Window{Start: start - d*dayMillis, End: start - (d+1)*dayMillis}
		rows = append(rows, rowsIn(w, fmt.Sprintf("day%d", d), 5)...)
	}
	l := &fakeLedger{rows: rows}
	b := newBackfill(t, gdb, l, NewCheckpointStore(memblob.OpenBucket(nil), "time_config.json"))

	s, err := b.Run(ctx, start, start-3*dayMillis)
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if s.Windows != 3 || s.Inserted != 15 {
		t.Errorf("summary = %+v, want 3 windows and 15 rows", s)
	}
	var windows []ledger.Window
	for _, q := range l.queries {
		windows = append(windows, q.Window)
	}
	want := []ledger.Window{
		{Start: start, End: start - dayMillis},
		{Start: start - dayMillis, End: start - 2*dayMillis},
		{Start: start - 2*dayMillis, End: start - 3*dayMillis},
	}
	if diff := cmp.Diff(want, windows); diff != "" {
		t.Errorf("windows -want, +got: %s", diff)
	}
}
