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

package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/client"
	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

// Report describes one sweep.
type Report struct {
	RunID           string
	Selected        int
	BindingsDeleted int
	BindingsKept    int
	Deleted         int64
	Failed          int
}

// protectedKeys holds, per queue, the routing keys a still valid
// subscription relies on.
type protectedKeys map[string]map[string]bool

func (p protectedKeys) has(queue, routingKey string) bool {
	return p[queue][routingKey]
}

// RunOnce sweeps the subscriptions that expired before now. Runs are
// serialized.
func (a *Agent) RunOnce(ctx context.Context) (Report, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	r := Report{RunID: uuid.NewString()}
	log := a.Logger.With("run", r.RunID)
	now := a.clock.Now().UTC()
	log.Infow("sweep started", "now", now)

	err := a.sweep(ctx, log, now, &r)
	a.Metrics.CountSweepPass(err != nil)
	a.Metrics.CountBindings(r.BindingsDeleted, r.BindingsKept)
	a.Metrics.CountSubscriptionsDeleted(r.Deleted)
	log.Infow("sweep finished",
		"selected", r.Selected,
		"bindingsDeleted", r.BindingsDeleted,
		"bindingsKept", r.BindingsKept,
		"deleted", r.Deleted,
		"failed", r.Failed)
	return r, err
}

func (a *Agent) sweep(ctx context.Context, log *zap.SugaredLogger, now time.Time, r *Report) error {
	var expired []db.Subscription
	err := a.db.WithContext(ctx).Table(a.Table).
		Select("queue_name", "entity").
		Where("expiry < ?", now).
		Order("queue_name, entity").
		Find(&expired).Error
	if err != nil {
		return fmt.Errorf("failed to select expired subscriptions: %w", dberrors.Wrap(err))
	}
	r.Selected = len(expired)
	if len(expired) == 0 {
		log.Debug("nothing to delete")
		return nil
	}
	log.Debugw("records to delete", "records", expired)

	protected := protectedKeys{}
	if a.ProtectSharedBindings {
		if protected, err = a.protected(ctx, now, expired); err != nil {
			return err
		}
	}

	if a.Mode == config.ModePerRecord {
		return a.perRecord(ctx, log, now, expired, protected, r)
	}
	return a.batch(ctx, log, now, expired, protected, r)
}

// protected returns the routing keys used by subscriptions that have not
// expired on the queues of the expired ones.
func (a *Agent) protected(ctx context.Context, now time.Time, expired []db.Subscription) (protectedKeys, error) {
	var valid []db.Subscription
	err := a.db.WithContext(ctx).Table(a.Table).
		Select("queue_name", "entity").
		Where("queue_name IN ? AND expiry >= ?", queues(expired), now).
		Find(&valid).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select valid subscriptions: %w", dberrors.Wrap(err))
	}
	p := protectedKeys{}
	for _, s := range valid {
		if p[s.QueueName] == nil {
			p[s.QueueName] = map[string]bool{}
		}
		p[s.QueueName][s.Entity] = true
		p[s.QueueName][s.Entity+"/.*"] = true
	}
	return p, nil
}

// batch removes the bindings of every expired subscription and then deletes
// all of them at once. Nothing is deleted when a binding cannot be removed.
func (a *Agent) batch(ctx context.Context, log *zap.SugaredLogger, now time.Time, expired []db.Subscription, protected protectedKeys, r *Report) error {
	for _, s := range expired {
		removed, kept, err := a.unbind(ctx, log, s, protected)
		r.BindingsDeleted += len(removed)
		r.BindingsKept += kept
		if err != nil {
			r.Failed = len(expired)
			return fmt.Errorf("no subscription deleted: %w", err)
		}
	}
	log.Debug("unbindings done")

	res := a.db.WithContext(ctx).Table(a.Table).
		Where("queue_name IN ? AND expiry < ?", queues(expired), now).
		Delete(&db.Subscription{})
	if res.Error != nil {
		r.Failed = len(expired)
		return fmt.Errorf("failed to delete expired subscriptions: %w", dberrors.Wrap(res.Error))
	}
	r.Deleted = res.RowsAffected
	return nil
}

// perRecord removes each expired subscription on its own. When one of its
// bindings cannot be removed the ones already removed are restored and the
// row is kept.
func (a *Agent) perRecord(ctx context.Context, log *zap.SugaredLogger, now time.Time, expired []db.Subscription, protected protectedKeys, r *Report) error {
	var errs []error
	for _, s := range expired {
		removed, kept, err := a.unbind(ctx, log, s, protected)
		r.BindingsKept += kept
		if err == nil {
			res := a.db.WithContext(ctx).Table(a.Table).
				Where("queue_name = ? AND entity = ? AND expiry < ?", s.QueueName, s.Entity, now).
				Delete(&db.Subscription{})
			if err = dberrors.Wrap(res.Error); err == nil {
				r.BindingsDeleted += len(removed)
				r.Deleted += res.RowsAffected
				continue
			}
		}

		r.Failed++
		errs = append(errs, fmt.Errorf("subscription %s kept: %w", s, err))
		if rerr := a.rebind(ctx, log, s, removed); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}

// unbind removes the bindings from the exchange of s to its queue, except
// those a valid subscription relies on. It returns the removed bindings
// even when it fails part way.
func (a *Agent) unbind(ctx context.Context, log *zap.SugaredLogger, s db.Subscription, protected protectedKeys) ([]broker.Binding, int, error) {
	exchange := broker.ExchangeName(s.Entity)
	log.Debugw("deleting binding", "queue", s.QueueName, "exchange", exchange)

	bindings, err := a.broker.ListBindings(ctx, a.Vhost, exchange, s.QueueName)
	if client.IsNotFound(err) {
		log.Debugw("exchange or queue no longer exists", "queue", s.QueueName, "exchange", exchange)
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var removed []broker.Binding
	kept := 0
	for _, b := range bindings {
		if protected.has(s.QueueName, b.RoutingKey) {
			log.Infow("binding kept for a valid subscription", "queue", s.QueueName, "exchange", exchange, "routingKey", b.RoutingKey)
			kept++
			continue
		}
		err := a.broker.DeleteBinding(ctx, a.Vhost, exchange, s.QueueName, b.PropertiesKey)
		if client.IsNotFound(err) {
			continue
		}
		if err != nil {
			return removed, kept, err
		}
		log.Debugw("unbinding done", "queue", s.QueueName, "exchange", exchange, "routingKey", b.RoutingKey)
		removed = append(removed, b)
	}
	return removed, kept, nil
}

func (a *Agent) rebind(ctx context.Context, log *zap.SugaredLogger, s db.Subscription, removed []broker.Binding) error {
	exchange := broker.ExchangeName(s.Entity)
	var errs []error
	for _, b := range removed {
		if err := a.broker.CreateBinding(ctx, a.Vhost, exchange, s.QueueName, b.RoutingKey); err != nil {
			log.Errorw("failed to restore binding", "queue", s.QueueName, "exchange", exchange, "routingKey", b.RoutingKey, "error", err)
			errs = append(errs, fmt.Errorf("binding of %s to %s with %s lost: %w", exchange, s.QueueName, b.RoutingKey, err))
			continue
		}
		log.Infow("binding restored", "queue", s.QueueName, "exchange", exchange, "routingKey", b.RoutingKey)
	}
	return errors.Join(errs...)
}

// queues returns the distinct queue names of subs in order.
func queues(subs []db.Subscription) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range subs {
		if !seen[s.QueueName] {
			seen[s.QueueName] = true
			out = append(out, s.QueueName)
		}
	}
	return out
}
