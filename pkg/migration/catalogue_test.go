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

package migration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
)

// fakeCatalogue serves catalogue entries by id.
type fakeCatalogue struct {
	mu       sync.Mutex
	items    map[string]string
	searched []string
	fail     bool
}

func newCatalogue(t *testing.T, items map[string]string) (*fakeCatalogue, *catalogue.Client) {
	t.Helper()
	f := &fakeCatalogue{items: items}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	c, err := catalogue.NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return f, c
}

func (f *fakeCatalogue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Query().Get("value"), "[["), "]]")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, id)
	if f.fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if item, ok := f.items[id]; ok {
		w.Write([]byte(`{"type":"urn:dx:cat:Success","totalHits":1,"results":[` + item + `]}`))
		return
	}
	w.Write([]byte(`{"type":"urn:dx:cat:Success","totalHits":0,"results":[]}`))
}

func (f *fakeCatalogue) Searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}
