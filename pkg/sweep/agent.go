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

// Package sweep removes expired streaming subscriptions: their broker
// bindings first, then their rows.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/metrics"
)

// Broker is the part of the broker management API the sweep uses.
type Broker interface {
	ListBindings(ctx context.Context, vhost, exchange, queue string) ([]broker.Binding, error)
	DeleteBinding(ctx context.Context, vhost, exchange, queue, propertiesKey string) error
	CreateBinding(ctx context.Context, vhost, exchange, queue, routingKey string) error
}

// Config tunes a sweep.
type Config struct {
	Vhost    string
	Table    string
	Schedule time.Duration
	// Mode is config.ModeBatch or config.ModePerRecord.
	Mode                  string
	ProtectSharedBindings bool
}

// ConfigFrom returns the sweep settings of a delete-subs configuration.
func ConfigFrom(c *config.DeleteSubs) Config {
	return Config{
		Vhost:                 c.DataBrokerVhost,
		Table:                 c.SubscriptionsTable,
		Schedule:              time.Duration(c.ScheduleTime) * time.Minute,
		Mode:                  c.Mode,
		ProtectSharedBindings: c.ProtectSharedBindings,
	}
}

// Agent runs sweeps on a schedule.
type Agent struct {
	Config

	mutex sync.Mutex

	Logger  *zap.SugaredLogger
	Metrics *metrics.Recorder

	db     *gorm.DB
	broker Broker
	clock  clockwork.Clock

	ctx  context.Context
	cron *cron.Cron
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock sets the clock deciding which subscriptions have expired.
func WithClock(c clockwork.Clock) Option {
	return func(a *Agent) {
		a.clock = c
	}
}

// WithMetrics sets the recorder sweep results are counted in.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Agent) {
		a.Metrics = m
	}
}

// NewAgent returns an Agent sweeping the subscriptions in db.
func NewAgent(db *gorm.DB, b Broker, cfg Config, logger *zap.SugaredLogger, opts ...Option) *Agent {
	a := &Agent{
		Config: cfg,
		Logger: logger,
		db:     db,
		broker: b,
		clock:  clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start runs a sweep every Schedule until Stop is called or ctx is done.
// A sweep still running when the next one is due delays it.
func (a *Agent) Start(ctx context.Context) error {
	l := cronLogger{log: a.Logger}
	c := cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", a.Schedule), a.job); err != nil {
		return fmt.Errorf("failed to add function for cronjob: %w", err)
	}
	a.ctx = ctx
	a.cron = c
	a.cron.Start()
	a.Logger.Infow("sweep scheduled", "every", a.Schedule.String(), "mode", a.Mode)
	return nil
}

// Stop stops scheduling sweeps and waits for a running one to finish.
func (a *Agent) Stop() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
}

func (a *Agent) job() {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := a.RunOnce(ctx); err != nil {
		a.Logger.Errorw("sweep failed", "error", err)
	}
}

// cronLogger adapts a zap logger to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
