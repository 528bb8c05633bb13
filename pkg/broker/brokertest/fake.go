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

// Package brokertest provides an in-memory broker management API for tests.
package brokertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/config"
)

// Call is a request received by the Server.
type Call struct {
	Method string
	Path   string
}

type bindingKey struct {
	vhost, exchange, queue string
}

// Server is a fake management API holding bindings, exchanges and
// permissions in memory.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	bindings    map[bindingKey][]broker.Binding
	exchanges   map[string][]broker.Exchange
	permissions []broker.Permission
	failDelete  map[string]bool
	failCreate  map[string]bool
	calls       []Call
}

// New starts a Server that is closed when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		bindings:   map[bindingKey][]broker.Binding{},
		exchanges:  map[string][]broker.Exchange{},
		failDelete: map[string]bool{},
		failCreate: map[string]bool{},
	}

	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.record)
	r.HandleFunc("/api/bindings/{vhost}/e/{exchange}/q/{queue}", s.listBindings).Methods(http.MethodGet)
	r.HandleFunc("/api/bindings/{vhost}/e/{exchange}/q/{queue}", s.createBinding).Methods(http.MethodPost)
	r.HandleFunc("/api/bindings/{vhost}/e/{exchange}/q/{queue}/{props}", s.deleteBinding).Methods(http.MethodDelete)
	r.HandleFunc("/api/exchanges/{vhost}", s.listExchanges).Methods(http.MethodGet)
	r.HandleFunc("/api/permissions", s.listPermissions).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Config returns broker settings pointing at s.
func (s *Server) Config(vhost string) config.Broker {
	return config.Broker{URL: s.URL, User: "admin", Password: "admin", Vhost: vhost}
}

// PropertiesKey encodes routingKey the way the broker does in the
// properties_key of a binding without arguments.
func PropertiesKey(routingKey string) string {
	if routingKey == "" {
		return "~"
	}
	return strings.ReplaceAll(url.QueryEscape(routingKey), "%", "%25")
}

// AddBinding binds queue to exchange with routingKey.
func (s *Server) AddBinding(vhost, exchange, queue, routingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBinding(bindingKey{vhost, exchange, queue}, routingKey)
}

func (s *Server) addBinding(k bindingKey, routingKey string) {
	for _, b := range s.bindings[k] {
		if b.RoutingKey == routingKey {
			return
		}
	}
	s.bindings[k] = append(s.bindings[k], broker.Binding{
		Source:          k.exchange,
		Vhost:           k.vhost,
		Destination:     k.queue,
		DestinationType: "queue",
		RoutingKey:      routingKey,
		PropertiesKey:   PropertiesKey(routingKey),
	})
}

// RoutingKeys returns the routing keys binding queue to exchange.
func (s *Server) RoutingKeys(vhost, exchange, queue string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, b := range s.bindings[bindingKey{vhost, exchange, queue}] {
		keys = append(keys, b.RoutingKey)
	}
	return keys
}

// AddExchange adds an exchange to vhost.
func (s *Server) AddExchange(vhost string, e broker.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Vhost = vhost
	s.exchanges[vhost] = append(s.exchanges[vhost], e)
}

// AddPermission adds a user permission.
func (s *Server) AddPermission(p broker.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = append(s.permissions, p)
}

// FailDelete makes deleting a binding with routingKey fail.
func (s *Server) FailDelete(routingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[routingKey] = true
}

// FailCreate makes creating a binding with routingKey fail.
func (s *Server) FailCreate(routingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[routingKey] = true
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns the number of requests received with method.
func (s *Server) CallCount(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets the recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.EscapedPath()})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func key(r *http.Request) (bindingKey, bool) {
	vars := mux.Vars(r)
	vhost, err1 := url.PathUnescape(vars["vhost"])
	exchange, err2 := url.PathUnescape(vars["exchange"])
	queue, err3 := url.PathUnescape(vars["queue"])
	if err1 != nil || err2 != nil || err3 != nil {
		return bindingKey{}, false
	}
	return bindingKey{vhost: vhost, exchange: exchange, queue: queue}, true
}

func (s *Server) listBindings(w http.ResponseWriter, r *http.Request) {
	k, ok := key(r)
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	out := append([]broker.Binding{}, s.bindings[k]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createBinding(w http.ResponseWriter, r *http.Request) {
	k, ok := key(r)
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	var in struct {
		RoutingKey string `json:"routing_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate[in.RoutingKey] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}
	s.addBinding(k, in.RoutingKey)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) deleteBinding(w http.ResponseWriter, r *http.Request) {
	k, ok := key(r)
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	props := mux.Vars(r)["props"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bindings[k] {
		if b.PropertiesKey != props {
			continue
		}
		if s.failDelete[b.RoutingKey] {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
			return
		}
		s.bindings[k] = append(s.bindings[k][:i], s.bindings[k][i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Object Not Found", "reason": "Not Found"})
}

func (s *Server) listExchanges(w http.ResponseWriter, r *http.Request) {
	vhost, err := url.PathUnescape(mux.Vars(r)["vhost"])
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	out := append([]broker.Exchange{}, s.exchanges[vhost]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPermissions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]broker.Permission{}, s.permissions...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
