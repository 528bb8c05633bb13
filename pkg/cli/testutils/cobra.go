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

// Package testutils provides test utility functions for the CLI package
package testutils

import (
	"bytes"

	"github.com/spf13/cobra"
)

// ExecuteCommand executes the command passing the args and returns what it
// wrote to its output and error streams.
func ExecuteCommand(c *cobra.Command, args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	c.SetOut(out)
	c.SetErr(errOut)
	c.SetArgs(args)
	c.SilenceUsage = true

	_, err := c.ExecuteC()

	return out.String(), errOut.String(), err
}

