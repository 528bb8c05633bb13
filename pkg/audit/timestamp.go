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
	"regexp"
	"strings"
	"time"
)

// zoneID matches a trailing region id such as [Asia/Kolkata].
var zoneID = regexp.MustCompile(`\[[^\]]*\]$`)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without an offset are read in the local zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NormalizeTime returns the UTC time of an entry at second precision. The
// iso time is used when it parses, otherwise the epoch milliseconds are.
func NormalizeTime(isoTime string, epochMillis int64) time.Time {
	s := zoneID.ReplaceAllString(strings.TrimSpace(isoTime), "")
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second)
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Truncate(time.Second)
		}
	}
	return time.UnixMilli(epochMillis).UTC().Truncate(time.Second)
}
