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
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/datakaveri/rs-maintenance/pkg/broker"
	"github.com/datakaveri/rs-maintenance/pkg/catalogue"
	"github.com/datakaveri/rs-maintenance/pkg/db"
	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

// Broker lists what the adaptor details are derived from.
type Broker interface {
	ListExchanges(ctx context.Context, vhost string) ([]broker.Exchange, error)
	ListPermissions(ctx context.Context) ([]broker.Permission, error)
}

// Adaptors creates an adaptor details row for every adaptor exchange that
// the catalogue knows about.
type Adaptors struct {
	Logger          *zap.SugaredLogger
	DB              *gorm.DB
	Broker          Broker
	Catalogue       Catalogue
	Vhost           string
	PermissionVhost string
	Table           string
	Write           bool
}

// Writers maps each adaptor exchange to the users allowed to publish to it
// on vhost, in permission order.
func Writers(perms []broker.Permission, vhost string) map[string][]string {
	out := map[string][]string{}
	for _, p := range perms {
		if p.Vhost != vhost {
			continue
		}
		for _, name := range strings.Split(p.Write, "|") {
			if broker.IsAdaptorExchange(name) {
				out[name] = append(out[name], p.User)
			}
		}
	}
	return out
}

// Run migrates every adaptor exchange of the vhost.
func (m *Adaptors) Run(ctx context.Context) (OutcomeLog, error) {
	perms, err := m.Broker.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	writers := Writers(perms, m.PermissionVhost)

	exchanges, err := m.Broker.ListExchanges(ctx, m.Vhost)
	if err != nil {
		return nil, fmt.Errorf("error listing exchanges of %s: %w", m.Vhost, err)
	}

	outcomes := make(OutcomeLog)
	for _, e := range exchanges {
		if !broker.IsAdaptorExchange(e.Name) {
			continue
		}
		res, err := m.Catalogue.Search(ctx, e.Name, catalogue.DatasetFields)
		if err != nil {
			return outcomes, err
		}
		if res.Empty() {
			m.Logger.Debugw("empty result for the id", "exchange", e.Name)
			outcomes[e.Name] = OutcomeNotInCatalogue
			continue
		}
		item := res.First()

		detail := db.AdaptorDetail{
			ExchangeName:       e.Name,
			DatasetName:        item.Get("name").String(),
			DatasetDetailsJSON: db.JSON(item.Raw),
			UserID:             e.UserWhoPerformedAction,
			ResourceID:         e.Name,
		}
		if users := writers[e.Name]; len(users) > 0 {
			detail.UserID = users[0]
		}

		o, err := m.create(ctx, &detail)
		if err != nil {
			return outcomes, err
		}
		outcomes[e.Name] = o
	}
	return outcomes, nil
}

func (m *Adaptors) create(ctx context.Context, d *db.AdaptorDetail) (Outcome, error) {
	tx := m.DB.WithContext(ctx).Table(m.Table)
	if !m.Write {
		// Report what would be written if this was run for real.
		err := tx.Where("exchange_name = ?", d.ExchangeName).Take(&db.AdaptorDetail{}).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeDryRun, nil
		}
		if err != nil {
			return "", fmt.Errorf("error querying adaptor %s: %w", d.ExchangeName, dberrors.Wrap(err))
		}
		return OutcomeAlreadyExists, nil
	}

	if err := tx.Create(d).Error; err != nil {
		if dberrors.CodeOf(err) == dberrors.AlreadyExists {
			m.Logger.Debugw("adaptor already migrated", "exchange", d.ExchangeName)
			return OutcomeAlreadyExists, nil
		}
		return "", fmt.Errorf("error creating adaptor %s: %w", d.ExchangeName, dberrors.Wrap(err))
	}
	m.Logger.Debugw("adaptor migrated", "exchange", d.ExchangeName, "user", d.UserID)
	return OutcomeSuccess, nil
}
