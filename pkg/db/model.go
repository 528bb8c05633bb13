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

// Package db defines database models for the resource server tables the
// maintenance tools read and write.
package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Default table names. Every tool allows overriding them.
const (
	SubscriptionsTable = "subscriptions"
	AdaptorsTable      = "adaptors_details"
	AuditTable         = "auditing_rs"
)

// ItemTypeResource is the item type written by the ownership backfill.
const ItemTypeResource = "RESOURCE"

// Subscription is the database model of a streaming subscription. A queue
// may be subscribed to several entities, one row each.
type Subscription struct {
	ID        string    `gorm:"column:_id;size:512;"`
	Type      *string   `gorm:"column:_type;size:64;"`
	QueueName string    `gorm:"column:queue_name;primaryKey;size:512;"`
	Entity    string    `gorm:"column:entity;primaryKey;size:512;"`
	Expiry    time.Time `gorm:"column:expiry;type:timestamp;index:subscriptions_by_expiry;"`

	DatasetName *string `gorm:"column:dataset_name;"`
	DatasetJSON JSON    `gorm:"column:dataset_json;type:jsonb;"`
	UserID      *string `gorm:"column:user_id;size:512;"`

	ProviderID    *string `gorm:"column:provider_id;size:512;"`
	ResourceGroup *string `gorm:"column:resource_group;size:512;"`
	DelegatorID   *string `gorm:"column:delegator_id;size:512;"`
	ItemType      *string `gorm:"column:item_type;size:64;"`
}

// TableName implements gorm's tabler interface.
func (Subscription) TableName() string {
	return SubscriptionsTable
}

func (s Subscription) String() string {
	return fmt.Sprintf("(%s, %s)", s.QueueName, s.Entity)
}

// AdaptorDetail is the database model of an adaptor exchange together with
// its owner and catalogue description.
type AdaptorDetail struct {
	ExchangeName       string `gorm:"column:exchange_name;primaryKey;size:512;"`
	DatasetName        string `gorm:"column:dataset_name;"`
	DatasetDetailsJSON JSON   `gorm:"column:dataset_details_json;type:jsonb;"`
	UserID             string `gorm:"column:user_id;size:512;"`
	ResourceID         string `gorm:"column:resource_id;size:512;"`
}

// TableName implements gorm's tabler interface.
func (AdaptorDetail) TableName() string {
	return AdaptorsTable
}

// AuditRecord is the database model of one metering entry copied from the
// ledger. Time is the entry's timestamp in UTC without zone.
type AuditRecord struct {
	ID         string    `gorm:"column:id;primaryKey;size:256;"`
	API        string    `gorm:"column:api;"`
	UserID     string    `gorm:"column:userid;size:512;"`
	EpochTime  int64     `gorm:"column:epochtime;index:audit_by_epochtime;"`
	ISOTime    string    `gorm:"column:isotime;"`
	ResourceID string    `gorm:"column:resourceid;"`
	ProviderID string    `gorm:"column:providerid;"`
	Size       int64     `gorm:"column:size;"`
	Time       time.Time `gorm:"column:time;type:timestamp;"`
}

// TableName implements gorm's tabler interface.
func (AuditRecord) TableName() string {
	return AuditTable
}

// JSON is a raw JSON document stored in a jsonb column.
type JSON []byte

// Scan resolves serialized data read from database into a JSON document.
// This implements the sql.Scanner interface.
func (j *JSON) Scan(value any) error {
	if j == nil {
		return errors.New("the json pointer mustn't be nil")
	}
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("wanted []byte or string, got %T: %+v", value, value)
	}
	if len(*j) > 0 && !json.Valid(*j) {
		return fmt.Errorf("column does not hold a JSON document: %q", string(*j))
	}
	return nil
}

// Value returns the value of JSON for database driver. This implements
// driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid JSON document: %q", string(j))
	}
	return string(j), nil
}

// MarshalJSON keeps the document as is when the model is printed.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}
