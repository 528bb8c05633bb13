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

// Package ledger reads metering entries from the immutable ledger.
package ledger

import (
	"context"
	"fmt"
	"strings"
)

// Row is one metering entry.
type Row struct {
	ID         string
	API        string
	UserID     string
	EpochTime  int64
	ISOTime    string
	ResourceID string
	ProviderID string
	Size       int64
}

// Window is a range of epoch milliseconds holding End < t <= Start.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether epoch falls in w.
func (w Window) Contains(epoch int64) bool {
	return epoch > w.End && epoch <= w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("(%d, %d]", w.End, w.Start)
}

// PageQuery selects up to Limit rows of Table inside Window whose id sorts
// after AfterID, ordered by id. An empty AfterID starts at the first row.
type PageQuery struct {
	Table   string
	Window  Window
	AfterID string
	Limit   int
}

// Reader reads pages of metering entries.
type Reader interface {
	ReadPage(ctx context.Context, q PageQuery) ([]Row, error)
}

var columns = []string{"id", "api", "userid", "epochtime", "isotime", "resourceid", "providerid", "size"}

// SQL returns the statement and parameters selecting the page. Table must be
// a plain identifier, it is validated when the configuration is loaded.
func (q PageQuery) SQL() (string, map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE epochtime <= @start AND epochtime > @end", strings.Join(columns, ", "), q.Table)
	params := map[string]any{
		"start": q.Window.Start,
		"end":   q.Window.End,
	}
	if q.AfterID != "" {
		b.WriteString(" AND id > @after")
		params["after"] = q.AfterID
	}
	fmt.Fprintf(&b, " ORDER BY id LIMIT %d;", q.Limit)
	return b.String(), params
}
