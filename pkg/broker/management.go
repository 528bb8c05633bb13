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

package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/datakaveri/rs-maintenance/pkg/client"
	"github.com/datakaveri/rs-maintenance/pkg/config"
)

// Binding is a binding between an exchange and a queue as reported by the
// management API. PropertiesKey identifies the binding in delete requests.
type Binding struct {
	Source          string `json:"source"`
	Vhost           string `json:"vhost"`
	Destination     string `json:"destination"`
	DestinationType string `json:"destination_type"`
	RoutingKey      string `json:"routing_key"`
	PropertiesKey   string `json:"properties_key"`
}

// Exchange is an exchange as reported by the management API.
type Exchange struct {
	Name                   string `json:"name"`
	Vhost                  string `json:"vhost"`
	Type                   string `json:"type"`
	UserWhoPerformedAction string `json:"user_who_performed_action"`
}

// Permission is a user's permission on a vhost. Configure, Write and Read
// are '|' separated patterns.
type Permission struct {
	User      string `json:"user"`
	Vhost     string `json:"vhost"`
	Configure string `json:"configure"`
	Write     string `json:"write"`
	Read      string `json:"read"`
}

// ManagementClient calls the broker management HTTP API.
type ManagementClient struct {
	rest *client.RESTClient
}

// NewManagementClient returns a client for the management API served at
// cfg.URL, authenticating with the broker user.
func NewManagementClient(cfg config.Broker) (*ManagementClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url %q: %w", cfg.URL, err)
	}
	rest, err := client.NewRESTClient(&client.Config{
		URL:                u,
		User:               cfg.User,
		Password:           cfg.Password,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	return &ManagementClient{rest: rest}, nil
}

func (c *ManagementClient) bindingsURL(vhost, exchange, queue string) string {
	return c.rest.BuildURL(nil, "api", "bindings", vhost, "e", exchange, "q", queue)
}

// ListBindings returns the bindings from exchange to queue.
func (c *ManagementClient) ListBindings(ctx context.Context, vhost, exchange, queue string) ([]Binding, error) {
	var out []Binding
	if err := c.rest.Send(ctx, http.MethodGet, c.bindingsURL(vhost, exchange, queue), nil, &out); err != nil {
		return nil, fmt.Errorf("error listing bindings of %s to %s: %w", exchange, queue, err)
	}
	return out, nil
}

// DeleteBinding removes the binding identified by propertiesKey. The key is
// used as the broker reported it, since the broker already encodes it for
// use in a path.
func (c *ManagementClient) DeleteBinding(ctx context.Context, vhost, exchange, queue, propertiesKey string) error {
	u := c.bindingsURL(vhost, exchange, queue) + "/" + propertiesKey
	if err := c.rest.Send(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("error deleting binding %s of %s to %s: %w", propertiesKey, exchange, queue, err)
	}
	return nil
}

// CreateBinding binds queue to exchange with routingKey.
func (c *ManagementClient) CreateBinding(ctx context.Context, vhost, exchange, queue, routingKey string) error {
	in := map[string]any{
		"routing_key": routingKey,
		"arguments":   map[string]any{},
	}
	if err := c.rest.Send(ctx, http.MethodPost, c.bindingsURL(vhost, exchange, queue), in, nil); err != nil {
		return fmt.Errorf("error binding %s to %s: %w", exchange, queue, err)
	}
	return nil
}

// ListExchanges returns the exchanges of vhost.
func (c *ManagementClient) ListExchanges(ctx context.Context, vhost string) ([]Exchange, error) {
	var out []Exchange
	if err := c.rest.Send(ctx, http.MethodGet, c.rest.BuildURL(nil, "api", "exchanges", vhost), nil, &out); err != nil {
		return nil, fmt.Errorf("error listing exchanges of %s: %w", vhost, err)
	}
	return out, nil
}

// ListPermissions returns the permissions of every user on every vhost.
func (c *ManagementClient) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	if err := c.rest.Send(ctx, http.MethodGet, c.rest.BuildURL(nil, "api", "permissions"), nil, &out); err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	return out, nil
}
