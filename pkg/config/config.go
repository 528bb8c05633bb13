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

// Package config loads the flat JSON configuration files of the maintenance
// tools. Key names follow the files already deployed next to the resource
// server, so every tool keeps its own struct.
package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to upper-cased keys when reading a value from the
// environment, e.g. RS_DATABASEPASSWORD. Hyphens become underscores, as in
// RS_AUTH_SERVER_URL.
const EnvPrefix = "RS"

// Validatable is implemented by every tool configuration.
type Validatable interface {
	Validate() error
}

// rawDecoder is implemented by configurations that need values viper cannot
// preserve (viper lower-cases nested keys).
type rawDecoder interface {
	decodeRaw(b []byte) error
}

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func init() {
	// Report validation errors with the keys operators write in the files.
	validation.ErrorTag = "mapstructure"
}

// keys returns the mapstructure keys of the struct cfg points to.
func keys(cfg any) []string {
	t := reflect.TypeOf(cfg)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("mapstructure"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// Load reads the JSON file at path into cfg and validates it. Fields not
// present in the file keep the values cfg already holds, so callers pass a
// struct pre-populated with defaults.
func Load(path string, cfg Validatable) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewReader(b)); err != nil {
		return fmt.Errorf("error parsing config %s: %w", path, err)
	}
	// Keys missing from the file are only read from the environment once bound.
	for _, key := range keys(cfg) {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("cannot bind %s to the environment: %w", key, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("cannot load config %s: %w", path, err)
	}
	if rd, ok := cfg.(rawDecoder); ok {
		if err := rd.decodeRaw(b); err != nil {
			return fmt.Errorf("cannot load config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

// Database is the connection information for the relational store.
type Database struct {
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// String implements fmt.Stringer without exposing the password.
func (d Database) String() string {
	return fmt.Sprintf("postgres://%s:***@%s:%d/%s?sslmode=%s", d.User, d.Host, d.Port, d.Name, d.SSLMode)
}

// Broker is the connection information for the message broker. URL is the
// management API base URL, Host and Port address the AMQP listener.
type Broker struct {
	URL                string
	Host               string
	Port               int
	User               string
	Password           string
	Vhost              string
	InsecureSkipVerify bool
}

// String implements fmt.Stringer without exposing the password.
func (b Broker) String() string {
	return fmt.Sprintf("broker(url=%s amqp=%s:%d vhost=%s user=%s)", b.URL, b.Host, b.Port, b.Vhost, b.User)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

var (
	isIdentifier = validation.Match(identifier).Error("must be a plain SQL identifier")
	isPort       = validation.Min(1)
)
