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

// Package migration backfills the resource server tables from the broker and
// the catalogue. Every migration can run without writing, and reports what
// happened to each item in an OutcomeLog.
package migration

import (
	"context"
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
)

const (
	// OutcomeSuccess means that the item was written.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeDryRun means that the item would have been written, but was
	// not because writes were disabled.
	OutcomeDryRun Outcome = "WRITE_DISABLED"
	// OutcomeAlreadyExists means that the item was not written because a
	// row with the same key already exists.
	OutcomeAlreadyExists Outcome = "ALREADY_EXISTS"
	// OutcomeNotInCatalogue means that the catalogue has no entry for the
	// item, so it was skipped.
	OutcomeNotInCatalogue Outcome = "NOT_IN_CATALOGUE"
	// OutcomeIncomplete means that the catalogue entry lacks a field the
	// migration needs, so the item was skipped.
	OutcomeIncomplete Outcome = "INCOMPLETE"
)

// Outcome is what a migration did with one item.
type Outcome string

// OutcomeLog maps item keys to their outcome.
type OutcomeLog map[string]Outcome

// Count returns the number of items with outcome o.
func (l OutcomeLog) Count(o Outcome) int {
	n := 0
	for _, v := range l {
		if v == o {
			n++
		}
	}
	return n
}

// Counts returns the number of items per outcome.
func (l OutcomeLog) Counts() map[Outcome]int {
	out := map[Outcome]int{}
	for _, v := range l {
		out[v]++
	}
	return out
}

// Keys returns the item keys in order.
func (l OutcomeLog) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Print writes l to w as indented JSON.
func (l OutcomeLog) Print(w io.Writer) error {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(l, "", "  ")
	if err != nil {
		_, err = fmt.Fprintf(w, "Outcome:\n%+v\n", map[string]Outcome(l))
		return err
	}
	_, err = fmt.Fprintf(w, "Outcome:\n%s\n", b)
	return err
}

// Catalogue looks up item descriptions.
type Catalogue interface {
	Search(ctx context.Context, id string, fields []string) (catalogue.Result, error)
}
