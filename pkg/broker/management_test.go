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

package broker_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/broker/brokertest"
	"github.com/datakaveri/rs-maintenance/pkg/client"
)

const (
	vhost    = "IUDX"
	exchange = "iisc.ac.in/89a36273d77dac4cf38114fca1bbe64392547f86/rs.iudx.io/surat-itms-realtime-information"
	queue    = "15c7506f-c800-48d6-adeb-0542b03947c6/subscription-surat"
)

func newClient(t *testing.T, s *brokertest.Server) *broker.ManagementClient {
	t.Helper()
	c, err := broker.NewManagementClient(s.Config(vhost))
	if err != nil {
		t.Fatalf("NewManagementClient() = %v", err)
	}
	return c
}

func TestBindings(t *testing.T) {
	ctx := context.Background()
	s := brokertest.New(t)
	c := newClient(t, s)

	s.AddBinding(vhost, exchange, queue, exchange+"/.*")
	if err := c.CreateBinding(ctx, vhost, exchange, queue, exchange+"/surat-itms-live-eta"); err != nil {
		t.Fatalf("CreateBinding() = %v", err)
	}

	got, err := c.ListBindings(ctx, vhost, exchange, queue)
	if err != nil {
		t.Fatalf("ListBindings() = %v", err)
	}
	var keys []string
	for _, b := range got {
		keys = append(keys, b.RoutingKey)
		if b.Source != exchange || b.Destination != queue {
			t.Errorf("binding %+v does not join %s to %s", b, exchange, queue)
		}
	}
	if diff := cmp.Diff([]string{exchange + "/.*", exchange + "/surat-itms-live-eta"}, keys); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}

	if err := c.DeleteBinding(ctx, vhost, exchange, queue, got[0].PropertiesKey); err != nil {
		t.Fatalf("DeleteBinding() = %v", err)
	}
	if diff := cmp.Diff([]string{exchange + "/surat-itms-live-eta"}, s.RoutingKeys(vhost, exchange, queue)); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}

	err = c.DeleteBinding(ctx, vhost, exchange, queue, got[0].PropertiesKey)
	if !client.IsNotFound(err) {
		t.Errorf("DeleteBinding() of a removed binding = %v, want not found", err)
	}

	want := []brokertest.Call{
		{Method: http.MethodPost, Path: "/api/bindings/IUDX/e/iisc.ac.in%2F89a36273d77dac4cf38114fca1bbe64392547f86%2Frs.iudx.io%2Fsurat-itms-realtime-information/q/15c7506f-c800-48d6-adeb-0542b03947c6%2Fsubscription-surat"},
		{Method: http.MethodGet, Path: "/api/bindings/IUDX/e/iisc.ac.in%2F89a36273d77dac4cf38114fca1bbe64392547f86%2Frs.iudx.io%2Fsurat-itms-realtime-information/q/15c7506f-c800-48d6-adeb-0542b03947c6%2Fsubscription-surat"},
	}
	if diff := cmp.Diff(want, s.Calls()[:2]); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}
}

func TestDeleteBindingFailure(t *testing.T) {
	s := brokertest.New(t)
	c := newClient(t, s)
	s.AddBinding(vhost, exchange, queue, exchange+"/.*")
	s.FailDelete(exchange + "/.*")

	err := c.DeleteBinding(context.Background(), vhost, exchange, queue, brokertest.PropertiesKey(exchange+"/.*"))
	if err == nil {
		t.Fatal("DeleteBinding() = nil, want error")
	}
	if got := len(s.RoutingKeys(vhost, exchange, queue)); got != 1 {
		t.Errorf("%d bindings left, want 1", got)
	}
}

func TestListExchangesAndPermissions(t *testing.T) {
	ctx := context.Background()
	s := brokertest.New(t)
	c := newClient(t, s)

	s.AddExchange(vhost, broker.Exchange{Name: exchange, Type: "topic", UserWhoPerformedAction: "provider-user"})
	s.AddExchange("other", broker.Exchange{Name: "amq.topic", Type: "topic"})
	s.AddPermission(broker.Permission{User: "u1", Vhost: vhost, Write: exchange + "|a/b"})

	exchanges, err := c.ListExchanges(ctx, vhost)
	if err != nil {
		t.Fatalf("ListExchanges() = %v", err)
	}
	want := []broker.Exchange{{Name: exchange, Vhost: vhost, Type: "topic", UserWhoPerformedAction: "provider-user"}}
	if diff := cmp.Diff(want, exchanges); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}

	perms, err := c.ListPermissions(ctx)
	if err != nil {
		t.Fatalf("ListPermissions() = %v", err)
	}
	if diff := cmp.Diff([]broker.Permission{{User: "u1", Vhost: vhost, Write: exchange + "|a/b"}}, perms); diff != "" {
		t.Errorf("-want, +got: %s", diff)
	}
}
