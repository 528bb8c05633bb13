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

// Package auth requests access tokens from the authorization server.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/datakaveri/rs-maintenance/pkg/client"
)

// Request is a token request on behalf of a client.
type Request struct {
	ClientID     string
	ClientSecret string
	// Body is sent as is.
	Body json.RawMessage
}

// Client requests tokens from one token endpoint.
type Client struct {
	rest     *client.RESTClient
	tokenURL string
	log      *zap.SugaredLogger
}

// NewClient returns a Client posting to tokenURL.
func NewClient(tokenURL string, log *zap.SugaredLogger) (*Client, error) {
	u, err := url.Parse(tokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth server url %q: %w", tokenURL, err)
	}
	rest, err := client.NewRESTClient(&client.Config{URL: u})
	if err != nil {
		return nil, err
	}
	return &Client{rest: rest, tokenURL: u.String(), log: log}, nil
}

// Token posts req and returns the issued access token.
func (c *Client) Token(ctx context.Context, req Request) (string, error) {
	if len(req.Body) == 0 {
		return "", errors.New("token request has no body")
	}
	header := http.Header{
		"clientId":     {req.ClientID},
		"clientSecret": {req.ClientSecret},
	}
	data, err := c.rest.Do(ctx, http.MethodPost, c.tokenURL, header, req.Body)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	token := gjson.GetBytes(data, "results.accessToken")
	if token.Type != gjson.String || token.String() == "" {
		return "", fmt.Errorf("token response has no results.accessToken: %s", gjson.GetBytes(data, "title").String())
	}

	if exp, err := Expiry(token.String()); err != nil {
		c.log.Debugw("issued token is not a JWT", "error", err)
	} else {
		c.log.Debugw("token issued", "expires", exp)
	}
	return token.String(), nil
}

// Expiry returns the expiry claim of a JWT without verifying its signature.
// The zero time is returned when the token carries no expiry.
func Expiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
