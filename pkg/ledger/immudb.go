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

package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/codenotary/immudb/pkg/api/schema"
	immuclient "github.com/codenotary/immudb/pkg/client"
)

// Config is the connection information for the ledger.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (c Config) String() string {
	return fmt.Sprintf("immudb://%s:***@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

type querier interface {
	SQLQuery(ctx context.Context, sql string, params map[string]interface{}, renewSnapshot bool) (*schema.SQLQueryResult, error)
}

// ImmudbClient reads metering entries over an immudb session.
type ImmudbClient struct {
	client immuclient.ImmuClient
	q      querier
}

// Dial opens a session on the ledger database in cfg.
func Dial(ctx context.Context, cfg Config) (*ImmudbClient, error) {
	opts := immuclient.DefaultOptions().WithAddress(cfg.Host).WithPort(cfg.Port)
	var c immuclient.ImmuClient = immuclient.NewClient().WithOptions(opts)
	if err := c.OpenSession(ctx, []byte(cfg.User), []byte(cfg.Password), cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to open ledger session on %s: %w", cfg, err)
	}
	return &ImmudbClient{client: c, q: c}, nil
}

// Close ends the session.
func (c *ImmudbClient) Close(ctx context.Context) error {
	return c.client.CloseSession(ctx)
}

// ReadPage implements Reader.
func (c *ImmudbClient) ReadPage(ctx context.Context, q PageQuery) ([]Row, error) {
	stmt, params := q.SQL()
	res, err := c.q.SQLQuery(ctx, stmt, params, true)
	if err != nil {
		return nil, fmt.Errorf("ledger query on %s %s after %q failed: %w", q.Table, q.Window, q.AfterID, err)
	}

	rows := make([]Row, 0, len(res.GetRows()))
	for _, r := range res.GetRows() {
		row, err := toRow(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toRow(r *schema.Row) (Row, error) {
	v := r.GetValues()
	if len(v) != len(columns) {
		return Row{}, fmt.Errorf("ledger row has %d values, want %d", len(v), len(columns))
	}
	epoch, err := integer(v[3])
	if err != nil {
		return Row{}, fmt.Errorf("epochtime: %w", err)
	}
	size, err := integer(v[7])
	if err != nil {
		return Row{}, fmt.Errorf("size: %w", err)
	}
	return Row{
		ID:         str(v[0]),
		API:        str(v[1]),
		UserID:     str(v[2]),
		EpochTime:  epoch,
		ISOTime:    str(v[4]),
		ResourceID: str(v[5]),
		ProviderID: str(v[6]),
		Size:       size,
	}, nil
}

func str(v *schema.SQLValue) string {
	switch x := v.GetValue().(type) {
	case *schema.SQLValue_S:
		return x.S
	case *schema.SQLValue_N:
		return strconv.FormatInt(x.N, 10)
	case *schema.SQLValue_F:
		return strconv.FormatFloat(x.F, 'f', -1, 64)
	}
	return ""
}

func integer(v *schema.SQLValue) (int64, error) {
	switch x := v.GetValue().(type) {
	case *schema.SQLValue_N:
		return x.N, nil
	case *schema.SQLValue_F:
		return int64(x.F), nil
	case *schema.SQLValue_S:
		return strconv.ParseInt(x.S, 10, 64)
	case *schema.SQLValue_Null, nil:
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected value %v", v)
}
