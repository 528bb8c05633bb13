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

// Package broker talks to the resource server's message broker, over the
// management HTTP API and over AMQP.
package broker

import "strings"

const (
	// resourceSegments is the number of segments of a resource item id.
	resourceSegments = 5
	// adaptorSegments is the minimum number of segments of an adaptor
	// exchange name.
	adaptorSegments = 4
)

// SegmentCount returns the number of '/' separated segments of id.
func SegmentCount(id string) int {
	return strings.Count(id, "/") + 1
}

// ExchangeName derives the exchange an entity publishes to. A resource item
// id (five segments) publishes to the exchange named after its group, so the
// last segment is dropped. Any other id is the exchange name itself.
func ExchangeName(id string) string {
	if SegmentCount(id) != resourceSegments {
		return id
	}
	return id[:strings.LastIndex(id, "/")]
}

// IsAdaptorExchange reports whether name looks like an adaptor exchange
// rather than a broker internal one.
func IsAdaptorExchange(name string) bool {
	return SegmentCount(name) >= adaptorSegments
}
