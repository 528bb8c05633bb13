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

package catalogue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const itemID = "iisc.ac.in/89a36273d77dac4cf38114fca1bbe64392547f86/rs.iudx.io/surat-itms-realtime-information/surat-itms-live-eta"

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/iudx/cat/v1/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if diff := cmp.Diff([]string{q.Get("property"), q.Get("value"), q.Get("filter")}, []string{"[id]", "[[" + itemID + "]]", "[id,provider,name,description,authControlGroup,accessPolicy,iudxResourceAPIs,instance]"}); diff != "" {
			t.Errorf("query -got, +want: %s", diff)
		}
		w.Write([]byte(`{"type":"urn:dx:cat:Success","totalHits":1,"results":[{"id":"` + itemID + `","name":"surat-itms-live-eta","provider":"p1"}]}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Search(context.Background(), itemID, DatasetFields)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if res.Empty() {
		t.Fatal("Empty() = true")
	}
	if got := res.First().Get("name").String(); got != "surat-itms-live-eta" {
		t.Errorf("name = %s", got)
	}
	if got := res.First().Get("provider").String(); got != "p1" {
		t.Errorf("provider = %s", got)
	}
}

func TestSearchEmpty(t *testing.T) {
	for _, body := range []string{
		`{"type":"urn:dx:cat:Success","totalHits":0,"results":[]}`,
		`{"type":"urn:dx:cat:Success","totalHits":0}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(body))
		}))
		c, err := NewClient(server.URL)
		if err != nil {
			t.Fatal(err)
		}
		res, err := c.Search(context.Background(), "unknown", OwnershipFields)
		server.Close()
		if err != nil {
			t.Fatalf("Search() = %v", err)
		}
		if !res.Empty() {
			t.Errorf("Empty() = false for %s", body)
		}
		if res.First().Exists() {
			t.Errorf("First() exists for %s", body)
		}
	}
}

func TestSearchErrors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>"))
		},
		"results not a list": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"results":{}}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()
			c, err := NewClient(server.URL)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Search(context.Background(), itemID, DatasetFields); err == nil {
				t.Error("Search() = nil, want error")
			}
		})
	}
}

func TestOwnershipFields(t *testing.T) {
	if got, want := len(OwnershipFields), len(DatasetFields)+2; got != want {
		t.Errorf("len(OwnershipFields) = %d, want %d", got, want)
	}
}
