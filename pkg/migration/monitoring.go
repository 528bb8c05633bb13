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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

// Binder binds a queue to an exchange.
type Binder interface {
	Bind(exchange, queue, routingKey string) error
}

// Monitoring binds every adaptor exchange to the monitoring queue so that
// the queue receives everything published by adaptors.
type Monitoring struct {
	Logger *zap.SugaredLogger
	DB     *gorm.DB
	Binder Binder
	Queue  string
	Table  string
	Out    io.Writer
}

// MonitoringRoutingKey returns the routing key matching everything published
// to exchange.
func MonitoringRoutingKey(exchange string) string {
	return exchange + "/.*"
}

// Run binds the exchanges and returns an error when any of them could not be
// bound. A failed bind does not stop the remaining ones.
func (m *Monitoring) Run(ctx context.Context) (OutcomeLog, error) {
	var exchanges []string
	err := m.DB.WithContext(ctx).Table(m.Table).
		Order("exchange_name").
		Pluck("exchange_name", &exchanges).Error
	if err != nil {
		return nil, fmt.Errorf("error reading exchanges: %w", dberrors.Wrap(err))
	}

	fmt.Fprintf(m.Out, "Total number of exchanges found: %d\n", len(exchanges))
	fmt.Fprintf(m.Out, "Binding %d exchanges to queue %q\n\n", len(exchanges), m.Queue)

	outcomes := make(OutcomeLog)
	var errs []error
	for _, e := range exchanges {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := m.Binder.Bind(e, m.Queue, MonitoringRoutingKey(e)); err != nil {
			m.Logger.Errorw("failed to bind exchange", "exchange", e, "queue", m.Queue, "error", err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(m.Out, "%q is bound with queue %q\n", e, m.Queue)
		outcomes[e] = OutcomeSuccess
	}

	bound := len(outcomes)
	fmt.Fprintln(m.Out)
	color.New(color.FgGreen).Fprintf(m.Out, "%d exchanges bound\n", bound)
	if len(errs) > 0 {
		color.New(color.FgRed).Fprintf(m.Out, "%d exchanges not bound\n", len(exchanges)-bound)
		return outcomes, fmt.Errorf("%d of %d exchanges not bound: %w", len(exchanges)-bound, len(exchanges), errors.Join(errs...))
	}
	return outcomes, nil
}
