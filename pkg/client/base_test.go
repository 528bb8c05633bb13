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

package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newClient(t *testing.T, rawURL string, c Config) *RESTClient {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	c.URL = u
	client, err := NewRESTClient(&c)
	if err != nil {
		t.Fatalf("NewRESTClient() = %v", err)
	}
	return client
}

func TestNewRESTClient(t *testing.T) {
	validURL, _ := url.Parse("https://databroker.iudx.io:28041")

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  &Config{URL: validURL, Timeout: 30 * time.Second},
			wantErr: false,
		},
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:    "nil url",
			config:  &Config{Timeout: 30 * time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRESTClient(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRESTClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	client := newClient(t, "https://databroker.iudx.io:28041/api", Config{})

	tests := []struct {
		name     string
		segments []string
		params   url.Values
		expected string
	}{
		{
			name:     "no params",
			segments: []string{"bindings", "IUDX"},
			expected: "https://databroker.iudx.io:28041/api/bindings/IUDX",
		},
		{
			name:     "segments holding slashes",
			segments: []string{"exchanges", "/", "iisc.ac.in/89a36273d77dac4cf38114fca1bbe64392547f86/rs.iudx.io/surat-itms-realtime-information", "bindings", "source"},
			expected: "https://databroker.iudx.io:28041/api/exchanges/%2F/iisc.ac.in%2F89a36273d77dac4cf38114fca1bbe64392547f86%2Frs.iudx.io%2Fsurat-itms-realtime-information/bindings/source",
		},
		{
			name:     "with params",
			segments: []string{"search"},
			params: url.Values{
				"property": []string{"[id]"},
				"value":    []string{"[[a/b]]"},
			},
			expected: "https://databroker.iudx.io:28041/api/search?property=%5Bid%5D&value=%5B%5Ba%2Fb%5D%5D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.BuildURL(tt.params, tt.segments...); got != tt.expected {
				t.Errorf("BuildURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("clientId"); got != "id" {
			t.Errorf("clientId header = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if got, want := string(body), `{"routing_key":"a/.*"}`; got != want {
			t.Errorf("request body = %s, want %s", got, want)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, Config{User: "admin", Password: "secret", Header: http.Header{"clientId": {"id"}}})

	var out struct {
		OK bool `json:"ok"`
	}
	in := map[string]string{"routing_key": "a/.*"}
	if err := client.Send(context.Background(), http.MethodPost, client.BuildURL(nil, "bindings"), in, &out); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if !out.OK {
		t.Error("response was not decoded")
	}
}

func TestSendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Object Not Found","reason":"Not Found"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, Config{})
	err := client.Send(context.Background(), http.MethodDelete, client.BuildURL(nil, "missing"), nil, nil)
	if !IsNotFound(err) {
		t.Fatalf("Send() = %v, want not found", err)
	}
	want := &Error{Message: `{"error":"Object Not Found","reason":"Not Found"}`, Code: http.StatusNotFound}
	if diff := cmp.Diff(want, err); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}
}
