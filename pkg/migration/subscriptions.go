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
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

// Subscriptions fills the columns of subscription rows that are derived from
// the catalogue entry of the subscribed entity.
type Subscriptions struct {
	Logger    *zap.SugaredLogger
	DB        *gorm.DB
	Catalogue Catalogue
	Table     string
	Write     bool
}

// UserID returns the id of the user owning queue, the first segment of its
// name.
func UserID(queue string) string {
	user, _, _ := strings.Cut(queue, "/")
	return user
}

// Dataset sets dataset_name, dataset_json and user_id on every subscription.
func (m *Subscriptions) Dataset(ctx context.Context) (OutcomeLog, error) {
	var subs []db.Subscription
	err := m.DB.WithContext(ctx).Table(m.Table).
		Select("_id", "queue_name", "entity").
		Order("queue_name, entity").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("error reading subscriptions: %w", dberrors.Wrap(err))
	}
	m.Logger.Infow("migrating dataset details", "subscriptions", len(subs))

	return m.each(ctx, subs, catalogue.DatasetFields, func(s db.Subscription, item catalogue.Item) (map[string]any, bool) {
		return map[string]any{
			"dataset_name": item.Get("name").String(),
			"dataset_json": db.JSON(item.Raw),
			"user_id":      UserID(s.QueueName),
		}, true
	})
}

// Ownership sets provider_id, resource_group, delegator_id and item_type on
// the subscriptions missing any of them.
func (m *Subscriptions) Ownership(ctx context.Context) (OutcomeLog, error) {
	var subs []db.Subscription
	err := m.DB.WithContext(ctx).Table(m.Table).
		Select("_id", "queue_name", "entity").
		Where("provider_id IS NULL OR resource_group IS NULL OR delegator_id IS NULL OR item_type IS NULL").
		Order("queue_name, entity").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("error reading subscriptions: %w", dberrors.Wrap(err))
	}
	m.Logger.Infow("migrating ownership details", "subscriptions", len(subs))

	return m.each(ctx, subs, catalogue.OwnershipFields, func(s db.Subscription, item catalogue.Item) (map[string]any, bool) {
		provider, group := item.Get("provider"), item.Get("resourceGroup")
		if !provider.Exists() || !group.Exists() {
			return nil, false
		}
		return map[string]any{
			"provider_id":    provider.String(),
			"resource_group": group.String(),
			"delegator_id":   UserID(s.QueueName),
			"item_type":      db.ItemTypeResource,
		}, true
	})
}

func (m *Subscriptions) each(ctx context.Context, subs []db.Subscription, fields []string, columns func(db.Subscription, catalogue.Item) (map[string]any, bool)) (OutcomeLog, error) {
	outcomes := make(OutcomeLog)
	for _, s := range subs {
		key := s.String()
		res, err := m.Catalogue.Search(ctx, s.Entity, fields)
		if err != nil {
			return outcomes, err
		}
		if res.Empty() {
			m.Logger.Debugw("empty result for the id", "entity", s.Entity)
			outcomes[key] = OutcomeNotInCatalogue
			continue
		}
		updates, ok := columns(s, res.First())
		if !ok {
			m.Logger.Warnw("catalogue entry is incomplete", "entity", s.Entity)
			outcomes[key] = OutcomeIncomplete
			continue
		}
		if !m.Write {
			outcomes[key] = OutcomeDryRun
			continue
		}
		err = m.DB.WithContext(ctx).Table(m.Table).
			Where("_id = ? AND queue_name = ?", s.ID, s.QueueName).
			Updates(updates).Error
		if err != nil {
			return outcomes, fmt.Errorf("error updating subscription %s: %w", key, dberrors.Wrap(err))
		}
		m.Logger.Debugw("subscription updated", "id", s.ID, "queue", s.QueueName)
		outcomes[key] = OutcomeSuccess
	}
	return outcomes, nil
}
