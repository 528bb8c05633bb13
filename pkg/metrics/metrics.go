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

// Package metrics exports counters of the maintenance tools to prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rs_maintenance"

// Recorder counts sweep and backfill progress. A nil Recorder records
// nothing.
type Recorder struct {
	sweepPasses          prometheus.Counter
	sweepFailures        prometheus.Counter
	bindingsDeleted      prometheus.Counter
	bindingsKept         prometheus.Counter
	subscriptionsDeleted prometheus.Counter
	auditPages           prometheus.Counter
	auditRowsInserted    prometheus.Counter
}

// NewRecorder registers the counters with reg. Counters already registered
// by an earlier Recorder are shared.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{}
	for _, c := range []struct {
		dst       *prometheus.Counter
		subsystem string
		name      string
		help      string
	}{
		{&r.sweepPasses, "sweep", "passes_total", "Number of sweep passes run."},
		{&r.sweepFailures, "sweep", "failed_passes_total", "Number of sweep passes that reported an error."},
		{&r.bindingsDeleted, "sweep", "bindings_deleted_total", "Number of broker bindings removed."},
		{&r.bindingsKept, "sweep", "bindings_kept_total", "Number of bindings kept because a valid subscription shares them."},
		{&r.subscriptionsDeleted, "sweep", "subscriptions_deleted_total", "Number of expired subscriptions deleted."},
		{&r.auditPages, "audit", "pages_read_total", "Number of ledger pages read."},
		{&r.auditRowsInserted, "audit", "rows_inserted_total", "Number of audit rows inserted."},
	} {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: c.subsystem,
			Name:      c.name,
			Help:      c.help,
		})
		if err := reg.Register(counter); err != nil {
			var alreadyRegisteredError prometheus.AlreadyRegisteredError
			if !errors.As(err, &alreadyRegisteredError) {
				return nil, err
			}
			counter = alreadyRegisteredError.ExistingCollector.(prometheus.Counter)
		}
		*c.dst = counter
	}
	return r, nil
}

// CountSweepPass records the end of a sweep pass.
func (r *Recorder) CountSweepPass(failed bool) {
	if r == nil {
		return
	}
	r.sweepPasses.Inc()
	if failed {
		r.sweepFailures.Inc()
	}
}

// CountBindings records bindings removed and kept by the sweep.
func (r *Recorder) CountBindings(deleted, kept int) {
	if r == nil {
		return
	}
	r.bindingsDeleted.Add(float64(deleted))
	r.bindingsKept.Add(float64(kept))
}

// CountSubscriptionsDeleted records deleted subscription rows.
func (r *Recorder) CountSubscriptionsDeleted(n int64) {
	if r == nil {
		return
	}
	r.subscriptionsDeleted.Add(float64(n))
}

// CountAuditPage records a ledger page read and the rows it added.
func (r *Recorder) CountAuditPage(inserted int64) {
	if r == nil {
		return
	}
	r.auditPages.Inc()
	r.auditRowsInserted.Add(float64(inserted))
}
