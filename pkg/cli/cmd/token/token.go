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

// Package token implements the get-token command.
package token

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datakaveri/rs-maintenance/pkg/auth"
	"github.com/datakaveri/rs-maintenance/pkg/cli/flags"
	"github.com/datakaveri/rs-maintenance/pkg/config"
)

// DefaultConfig is the configuration file read when --config is not given.
const DefaultConfig = "rs-token-config.json"

// Command returns the get-token command. Only the issued tokens are written
// to the command output, one per line, pune first.
func Command() *cobra.Command {
	opts := &flags.Options{}
	var pune, surat bool
	cmd := &cobra.Command{
		Use:   "get-token",
		Short: "Issue the preconfigured token requests",
		Long: `Issue the token requests configured as pune-request-body and
surat-request-body and print the access tokens. Without --pune or --surat
no request is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewToken()
			if err := opts.Load(cfg); err != nil {
				return err
			}
			log, err := opts.Logger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			var bodies []json.RawMessage
			if pune {
				bodies = append(bodies, cfg.PuneRequestBody)
			}
			if surat {
				bodies = append(bodies, cfg.SuratRequestBody)
			}
			if len(bodies) == 0 {
				log.Debug("no token requested")
				return nil
			}

			c, err := auth.NewClient(cfg.AuthServerURL, log)
			if err != nil {
				return err
			}
			for _, body := range bodies {
				token, err := c.Token(cmd.Context(), auth.Request{
					ClientID:     cfg.ClientID,
					ClientSecret: cfg.ClientSecret,
					Body:         body,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
			}
			return nil
		},
	}
	flags.AddOptions(opts, cmd, DefaultConfig)
	cmd.Flags().BoolVarP(&pune, "pune", "p", false, "generate token for pune-env-flood resource-group")
	cmd.Flags().BoolVarP(&surat, "surat", "s", false, "generate token for surat-itms-live-eta resource")
	return cmd
}
