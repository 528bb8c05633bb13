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

// Package flags holds the flags shared by the maintenance commands.
package flags

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datakaveri/rs-maintenance/pkg/config"
	"github.com/datakaveri/rs-maintenance/pkg/logger"
)

// Options are the flags every command takes.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// AddOptions adds the common flags to cmd. defaultConfig is the file read
// when --config is not given.
func AddOptions(o *Options, cmd *cobra.Command, defaultConfig string) {
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", defaultConfig, "path of the JSON configuration file")
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "", "log level, overrides logLevel from the configuration file (default \""+logger.DefaultLevel+"\")")
}

// Load reads the configuration file into cfg.
func (o *Options) Load(cfg config.Validatable) error {
	return config.Load(o.ConfigPath, cfg)
}

// Logger returns a logger at the level given by flag, or else configured,
// or else the default level.
func (o *Options) Logger(configured string) (*zap.SugaredLogger, error) {
	level := o.LogLevel
	if level == "" {
		level = configured
	}
	if level == "" {
		level = logger.DefaultLevel
	}
	return logger.New(level)
}
