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

package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/datakaveri/rs-maintenance/pkg/config"
)

func TestAMQPURI(t *testing.T) {
	for _, tc := range []struct {
		name      string
		cfg       config.Broker
		wantVhost string
		wantPass  string
	}{
		{
			name:      "named vhost",
			cfg:       config.Broker{Host: "databroker.iudx.io", Port: 24567, User: "admin", Password: "p@ss/word", Vhost: "IUDX-INTERNAL"},
			wantVhost: "IUDX-INTERNAL",
			wantPass:  "p@ss/word",
		},
		{
			name:      "default vhost",
			cfg:       config.Broker{Host: "localhost", Port: 5671, User: "guest", Password: "guest", Vhost: "/"},
			wantVhost: "/",
			wantPass:  "guest",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			uri, err := amqp.ParseURI(AMQPURI(tc.cfg))
			if err != nil {
				t.Fatalf("ParseURI() = %v", err)
			}
			if uri.Scheme != "amqps" {
				t.Errorf("Scheme = %s, want amqps", uri.Scheme)
			}
			if uri.Host != tc.cfg.Host || uri.Port != tc.cfg.Port {
				t.Errorf("address = %s:%d, want %s:%d", uri.Host, uri.Port, tc.cfg.Host, tc.cfg.Port)
			}
			if uri.Vhost != tc.wantVhost {
				t.Errorf("Vhost = %q, want %q", uri.Vhost, tc.wantVhost)
			}
			if uri.Password != tc.wantPass {
				t.Errorf("Password = %q, want %q", uri.Password, tc.wantPass)
			}
		})
	}
}
