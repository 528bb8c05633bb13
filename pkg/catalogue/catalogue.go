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

// Package catalogue looks up item descriptions in the resource catalogue.
package catalogue

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/datakaveri/rs-maintenance/pkg/client"
)

// Field sets requested from the catalogue.
var (
	DatasetFields   = []string{"id", "provider", "name", "description", "authControlGroup", "accessPolicy", "iudxResourceAPIs", "instance"}
	OwnershipFields = append(append([]string{}, DatasetFields...), "resourceGroup", "type")
)

// Item is one catalogue entry.
type Item = gjson.Result

// Result is the outcome of a search.
type Result struct {
	results gjson.Result
}

// Empty reports whether the search matched nothing.
func (r Result) Empty() bool {
	return len(r.results.Array()) == 0
}

// First returns the first match, which is the authoritative record for the
// searched id.
func (r Result) First() Item {
	return r.results.Get("0")
}

// Client searches the catalogue.
type Client struct {
	rest *client.RESTClient
}

// NewClient returns a Client for the catalogue served at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalogue url %q: %w", baseURL, err)
	}
	rest, err := client.NewRESTClient(&client.Config{URL: u})
	if err != nil {
		return nil, err
	}
	return &Client{rest: rest}, nil
}

// Search returns the items whose id is id, restricted to fields.
func (c *Client) Search(ctx context.Context, id string, fields []string) (Result, error) {
	params := url.Values{
		"property": {"[id]"},
		"value":    {"[[" + id + "]]"},
		"filter":   {"[" + strings.Join(fields, ",") + "]"},
	}
	data, err := c.rest.Do(ctx, http.MethodGet, c.rest.BuildURL(params, "iudx", "cat", "v1", "search"), nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("error searching catalogue for %s: %w", id, err)
	}
	if !gjson.ValidBytes(data) {
		return Result{}, fmt.Errorf("error searching catalogue for %s: invalid response", id)
	}
	results := gjson.GetBytes(data, "results")
	if results.Exists() && !results.IsArray() {
		return Result{}, fmt.Errorf("error searching catalogue for %s: results is not a list", id)
	}
	return Result{results: results}, nil
}
