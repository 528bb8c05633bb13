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

// Package logger builds the zap loggers shared by the maintenance tools.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel matches the verbosity operators expect from the tools.
const DefaultLevel = "debug"

// New returns a sugared zap logger with production configuration at the
// given level. Output goes to stderr so that stdout stays usable for tool
// output (e.g. tokens).
func New(level string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	if len(level) > 0 {
		var err error
		if config.Level, err = zap.ParseAtomicLevel(level); err != nil {
			return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
		}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	return logger.Sugar(), nil
}

// IsDebug reports whether l logs at debug level.
func IsDebug(l *zap.SugaredLogger) bool {
	return l.Desugar().Core().Enabled(zapcore.DebugLevel)
}
