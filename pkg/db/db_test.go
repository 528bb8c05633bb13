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

package db

import (
	"testing"
	"time"

	"github.com/datakaveri/rs-maintenance/pkg/config"
)

func TestDSN(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   config.Database
		want string
	}{
		{
			name: "plain",
			in:   config.Database{Host: "postgres", Port: 5432, Name: "iudx", User: "iudx_user", Password: "secret", SSLMode: "disable"},
			want: "host='postgres' user='iudx_user' password='secret' dbname='iudx' port=5432 sslmode='disable'",
		},
		{
			name: "quoted password and timeout",
			in:   config.Database{Host: "pg", Port: 6432, Name: "iudx", User: "u", Password: `it's a \pass`, ConnectTimeout: 3 * time.Second},
			want: `host='pg' user='u' password='it\'s a \\pass' dbname='iudx' port=6432 connect_timeout=3`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := DSN(tc.in); got != tc.want {
				t.Errorf("DSN() = %s, want %s", got, tc.want)
			}
		})
	}
}
