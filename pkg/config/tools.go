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

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
)

// Sweep modes.
const (
	ModeBatch     = "batch"
	ModePerRecord = "per-record"
)

// DefaultPageSize is the number of ledger rows read per query.
const DefaultPageSize = 999

// DefaultAuthServerURL is the token endpoint used when none is configured.
const DefaultAuthServerURL = "https://authvertx.iudx.io/auth/v1/token"

// DeleteSubs configures the expired-subscription sweep.
type DeleteSubs struct {
	DataBrokerHost     string `mapstructure:"dataBrokerHost"`
	DataBrokerPort     int    `mapstructure:"dataBrokerPort"`
	DataBrokerUser     string `mapstructure:"dataBrokerUser"`
	DataBrokerPassword string `mapstructure:"dataBrokerPassword"`
	DataBrokerVhost    string `mapstructure:"dataBrokerVhost"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`

	DataBaseName     string `mapstructure:"dataBaseName"`
	DataBaseUser     string `mapstructure:"dataBaseUser"`
	DataBasePassword string `mapstructure:"dataBasePassword"`
	DataBaseHost     string `mapstructure:"dataBaseHost"`
	DataBasePort     int    `mapstructure:"dataBasePort"`
	SSLMode          string `mapstructure:"sslMode"`
	ConnectTimeout   int    `mapstructure:"connectTimeout"`

	SubscriptionsTable    string `mapstructure:"subscriptionsTable"`
	ScheduleTime          int    `mapstructure:"schedule_time"`
	Mode                  string `mapstructure:"mode"`
	ProtectSharedBindings bool   `mapstructure:"protectSharedBindings"`
	LogLevel              string `mapstructure:"logLevel"`
}

// NewDeleteSubs returns a DeleteSubs holding the defaults.
func NewDeleteSubs() *DeleteSubs {
	return &DeleteSubs{
		SSLMode:               "disable",
		ConnectTimeout:        3,
		SubscriptionsTable:    "subscriptions",
		ScheduleTime:          60,
		Mode:                  ModeBatch,
		ProtectSharedBindings: true,
	}
}

// Validate implements Validatable.
func (c DeleteSubs) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DataBrokerHost, validation.Required),
		validation.Field(&c.DataBrokerPort, validation.Required, isPort),
		validation.Field(&c.DataBrokerUser, validation.Required),
		validation.Field(&c.DataBrokerPassword, validation.Required),
		validation.Field(&c.DataBrokerVhost, validation.Required),
		validation.Field(&c.DataBaseName, validation.Required),
		validation.Field(&c.DataBaseUser, validation.Required),
		validation.Field(&c.DataBasePassword, validation.Required),
		validation.Field(&c.DataBaseHost, validation.Required),
		validation.Field(&c.DataBasePort, validation.Required, isPort),
		validation.Field(&c.SubscriptionsTable, validation.Required, isIdentifier),
		validation.Field(&c.ScheduleTime, validation.Required, validation.Min(1)),
		validation.Field(&c.Mode, validation.In(ModeBatch, ModePerRecord)),
	)
}

// Database returns the relational store settings.
func (c DeleteSubs) Database() Database {
	return Database{
		Host:           c.DataBaseHost,
		Port:           c.DataBasePort,
		Name:           c.DataBaseName,
		User:           c.DataBaseUser,
		Password:       c.DataBasePassword,
		SSLMode:        c.SSLMode,
		ConnectTimeout: seconds(c.ConnectTimeout),
	}
}

// Broker returns the broker settings. The management API is served over
// https on the configured host and port.
func (c DeleteSubs) Broker() Broker {
	return Broker{
		URL:                "https://" + c.DataBrokerHost + ":" + strconv.Itoa(c.DataBrokerPort),
		Host:               c.DataBrokerHost,
		Port:               c.DataBrokerPort,
		User:               c.DataBrokerUser,
		Password:           c.DataBrokerPassword,
		Vhost:              c.DataBrokerVhost,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// SubscriptionMigration configures the subscription backfills.
type SubscriptionMigration struct {
	PostgresDatabaseName string `mapstructure:"postgersDatabaseName"`
	PostgresUser         string `mapstructure:"postgersUser"`
	PostgresPassword     string `mapstructure:"postgersPassword"`
	PostgresHost         string `mapstructure:"postgersHost"`
	PostgresPort         int    `mapstructure:"postgersPort"`
	SSLMode              string `mapstructure:"sslMode"`

	CatalogueURL       string `mapstructure:"host_url"`
	SubscriptionsTable string `mapstructure:"subscriptionsTable"`
	LogLevel           string `mapstructure:"logLevel"`
}

// NewSubscriptionMigration returns a SubscriptionMigration holding the defaults.
func NewSubscriptionMigration() *SubscriptionMigration {
	return &SubscriptionMigration{
		SSLMode:            "disable",
		SubscriptionsTable: "subscriptions",
	}
}

// Validate implements Validatable.
func (c SubscriptionMigration) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PostgresDatabaseName, validation.Required),
		validation.Field(&c.PostgresUser, validation.Required),
		validation.Field(&c.PostgresPassword, validation.Required),
		validation.Field(&c.PostgresHost, validation.Required),
		validation.Field(&c.PostgresPort, validation.Required, isPort),
		validation.Field(&c.CatalogueURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.SubscriptionsTable, validation.Required, isIdentifier),
	)
}

// Database returns the relational store settings.
func (c SubscriptionMigration) Database() Database {
	return Database{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Name:     c.PostgresDatabaseName,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		SSLMode:  c.SSLMode,
	}
}

// AdaptorsMigration configures the adaptor details migration.
type AdaptorsMigration struct {
	PostgresDatabaseName string `mapstructure:"postgersDatabaseName"`
	PostgresUser         string `mapstructure:"postgersUser"`
	PostgresPassword     string `mapstructure:"postgersPassword"`
	PostgresHost         string `mapstructure:"postgersHost"`
	PostgresPort         int    `mapstructure:"postgersPort"`
	SSLMode              string `mapstructure:"sslMode"`

	BrokerURL          string `mapstructure:"host_url_db"`
	CatalogueURL       string `mapstructure:"host_url_cache"`
	Vhost              string `mapstructure:"vhost"`
	PermissionVhost    string `mapstructure:"permissionVhost"`
	DataBrokerUserName string `mapstructure:"dataBrokerUserName"`
	DataBrokerPassword string `mapstructure:"dataBrokerPassword"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`

	AdaptorsTable string `mapstructure:"adaptorsTable"`
	LogLevel      string `mapstructure:"logLevel"`
}

// NewAdaptorsMigration returns an AdaptorsMigration holding the defaults.
func NewAdaptorsMigration() *AdaptorsMigration {
	return &AdaptorsMigration{
		SSLMode:         "disable",
		PermissionVhost: "IUDX",
		AdaptorsTable:   "adaptors_details",
	}
}

// Validate implements Validatable.
func (c AdaptorsMigration) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PostgresDatabaseName, validation.Required),
		validation.Field(&c.PostgresUser, validation.Required),
		validation.Field(&c.PostgresPassword, validation.Required),
		validation.Field(&c.PostgresHost, validation.Required),
		validation.Field(&c.PostgresPort, validation.Required, isPort),
		validation.Field(&c.BrokerURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.CatalogueURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Vhost, validation.Required),
		validation.Field(&c.PermissionVhost, validation.Required),
		validation.Field(&c.DataBrokerUserName, validation.Required),
		validation.Field(&c.DataBrokerPassword, validation.Required),
		validation.Field(&c.AdaptorsTable, validation.Required, isIdentifier),
	)
}

// Database returns the relational store settings.
func (c AdaptorsMigration) Database() Database {
	return Database{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Name:     c.PostgresDatabaseName,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		SSLMode:  c.SSLMode,
	}
}

// Broker returns the broker management API settings.
func (c AdaptorsMigration) Broker() Broker {
	return Broker{
		URL:                c.BrokerURL,
		User:               c.DataBrokerUserName,
		Password:           c.DataBrokerPassword,
		Vhost:              c.Vhost,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// MonitoringBinding configures the monitoring queue binding.
type MonitoringBinding struct {
	DataBaseName     string `mapstructure:"dataBaseName"`
	DataBaseUser     string `mapstructure:"dataBaseUser"`
	DataBasePassword string `mapstructure:"dataBasePassword"`
	DataBaseHost     string `mapstructure:"dataBaseHost"`
	DataBasePort     int    `mapstructure:"dataBasePort"`
	SSLMode          string `mapstructure:"sslMode"`

	Vhost              string `mapstructure:"vhost"`
	DataBrokerUserName string `mapstructure:"dataBrokerUserName"`
	DataBrokerPassword string `mapstructure:"dataBrokerPassword"`
	DataBrokerHost     string `mapstructure:"dataBrokerHost"`
	DataBrokerPort     int    `mapstructure:"dataBrokerPort"`
	DataBrokerQueue    string `mapstructure:"dataBrokerQueue"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`

	AdaptorsTable string `mapstructure:"adaptorsTable"`
	LogLevel      string `mapstructure:"logLevel"`
}

// NewMonitoringBinding returns a MonitoringBinding holding the defaults.
func NewMonitoringBinding() *MonitoringBinding {
	return &MonitoringBinding{
		SSLMode:       "disable",
		AdaptorsTable: "adaptors_details",
	}
}

// Validate implements Validatable.
func (c MonitoringBinding) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DataBaseName, validation.Required),
		validation.Field(&c.DataBaseUser, validation.Required),
		validation.Field(&c.DataBasePassword, validation.Required),
		validation.Field(&c.DataBaseHost, validation.Required),
		validation.Field(&c.DataBasePort, validation.Required, isPort),
		validation.Field(&c.Vhost, validation.Required),
		validation.Field(&c.DataBrokerUserName, validation.Required),
		validation.Field(&c.DataBrokerPassword, validation.Required),
		validation.Field(&c.DataBrokerHost, validation.Required),
		validation.Field(&c.DataBrokerPort, validation.Required, isPort),
		validation.Field(&c.DataBrokerQueue, validation.Required),
		validation.Field(&c.AdaptorsTable, validation.Required, isIdentifier),
	)
}

// Database returns the relational store settings.
func (c MonitoringBinding) Database() Database {
	return Database{
		Host:     c.DataBaseHost,
		Port:     c.DataBasePort,
		Name:     c.DataBaseName,
		User:     c.DataBaseUser,
		Password: c.DataBasePassword,
		SSLMode:  c.SSLMode,
	}
}

// Broker returns the AMQP listener settings.
func (c MonitoringBinding) Broker() Broker {
	return Broker{
		Host:               c.DataBrokerHost,
		Port:               c.DataBrokerPort,
		User:               c.DataBrokerUserName,
		Password:           c.DataBrokerPassword,
		Vhost:              c.Vhost,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// AuditMigration configures the ledger to relational audit backfill.
type AuditMigration struct {
	ImmudbHost      string `mapstructure:"immudbHost"`
	ImmudbPort      int    `mapstructure:"immudbPort"`
	ImmudbUserName  string `mapstructure:"immudbUserName"`
	ImmudbPassword  string `mapstructure:"immudbPassword"`
	ImmudbDatabase  string `mapstructure:"immudbDatabase"`
	ImmudbTableName string `mapstructure:"immudbTableName"`

	PostgresHost      string `mapstructure:"postgresHost"`
	PostgresPort      int    `mapstructure:"postgresPort"`
	PostgresDatabase  string `mapstructure:"postgresDatabase"`
	PostgresUserName  string `mapstructure:"postgresUserName"`
	PostgresPassword  string `mapstructure:"postgresPassword"`
	PostgresTableName string `mapstructure:"postgresTableName"`
	SSLMode           string `mapstructure:"sslMode"`

	// StartTime is the most recent bound (epoch ms); the backfill walks back
	// from it until EndTime.
	StartTime int64 `mapstructure:"starttime"`
	EndTime   int64 `mapstructure:"endtime"`
	PageSize  int   `mapstructure:"pageSize"`

	// CheckpointBucket is a local directory or a gocloud bucket URL
	// (e.g. s3://bucket?region=ap-south-1). Empty means the working directory.
	CheckpointBucket string `mapstructure:"checkpointBucket"`
	CheckpointKey    string `mapstructure:"checkpointKey"`

	// PushgatewayURL receives the audit counters when the run ends. Empty
	// disables pushing.
	PushgatewayURL string `mapstructure:"pushgatewayURL"`
	LogLevel       string `mapstructure:"logLevel"`
}

// NewAuditMigration returns an AuditMigration holding the defaults.
func NewAuditMigration() *AuditMigration {
	return &AuditMigration{
		ImmudbPort:    3322,
		SSLMode:       "disable",
		PageSize:      DefaultPageSize,
		CheckpointKey: "time_config.json",
	}
}

// Validate implements Validatable.
func (c AuditMigration) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ImmudbHost, validation.Required),
		validation.Field(&c.ImmudbPort, validation.Required, isPort),
		validation.Field(&c.ImmudbUserName, validation.Required),
		validation.Field(&c.ImmudbPassword, validation.Required),
		validation.Field(&c.ImmudbDatabase, validation.Required),
		validation.Field(&c.ImmudbTableName, validation.Required, isIdentifier),
		validation.Field(&c.PostgresHost, validation.Required),
		validation.Field(&c.PostgresPort, validation.Required, isPort),
		validation.Field(&c.PostgresDatabase, validation.Required),
		validation.Field(&c.PostgresUserName, validation.Required),
		validation.Field(&c.PostgresPassword, validation.Required),
		validation.Field(&c.PostgresTableName, validation.Required, isIdentifier),
		validation.Field(&c.StartTime, validation.Required),
		validation.Field(&c.EndTime, validation.Required, validation.Max(c.StartTime)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.CheckpointKey, validation.Required),
		validation.Field(&c.PushgatewayURL, validation.When(c.PushgatewayURL != "", validation.By(absoluteURL))),
	)
}

// Database returns the relational store settings.
func (c AuditMigration) Database() Database {
	return Database{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Name:     c.PostgresDatabase,
		User:     c.PostgresUserName,
		Password: c.PostgresPassword,
		SSLMode:  c.SSLMode,
	}
}

// Token configures the token requests of get-token.
type Token struct {
	ClientID      string `mapstructure:"clientID"`
	ClientSecret  string `mapstructure:"clientSecret"`
	AuthServerURL string `mapstructure:"auth-server-url"`
	LogLevel      string `mapstructure:"logLevel"`

	// Request bodies are kept byte for byte.
	PuneRequestBody  json.RawMessage `mapstructure:"-"`
	SuratRequestBody json.RawMessage `mapstructure:"-"`
}

// NewToken returns a Token holding the defaults.
func NewToken() *Token {
	return &Token{
		AuthServerURL: DefaultAuthServerURL,
	}
}

func (c *Token) decodeRaw(b []byte) error {
	for key, dst := range map[string]*json.RawMessage{
		"pune-request-body":  &c.PuneRequestBody,
		"surat-request-body": &c.SuratRequestBody,
	} {
		v := gjson.GetBytes(b, key)
		if !v.Exists() {
			continue
		}
		if !v.IsObject() {
			return fmt.Errorf("%s must be a JSON object", key)
		}
		*dst = json.RawMessage(v.Raw)
	}
	return nil
}

// Validate implements Validatable.
func (c *Token) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.AuthServerURL, validation.Required, validation.By(absoluteURL)),
	)
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}
