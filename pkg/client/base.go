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

// Package client provides the JSON over HTTPS client shared by the broker
// management, catalogue and auth clients.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds every request made by a RESTClient.
const DefaultTimeout = 30 * time.Second

// Error represents an error that occurred during a client operation
type Error struct {
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("client error: %s (code: %d)", e.Message, e.Code)
}

// NewError creates a new Error
func NewError(message string, code int) error {
	return &Error{
		Message: message,
		Code:    code,
	}
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == http.StatusNotFound
}

// Config for the HTTP client
type Config struct {
	URL     *url.URL
	Timeout time.Duration

	// User and Password enable basic authentication when User is set.
	User     string
	Password string
	// Header is added to every request.
	Header http.Header

	InsecureSkipVerify bool
	// Transport replaces the default TLS transport when set.
	Transport http.RoundTripper
}

// RESTClient handles HTTP communication with the server
type RESTClient struct {
	baseURL    *url.URL
	user       string
	password   string
	header     http.Header
	httpClient *http.Client
}

// NewRESTClient creates a new REST client.
func NewRESTClient(c *Config) (*RESTClient, error) {
	if c == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if c.URL == nil {
		return nil, fmt.Errorf("config.URL cannot be nil")
	}

	rt := c.Transport
	if rt == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec
		}
		rt = t
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &RESTClient{
		baseURL:  c.URL,
		user:     c.User,
		password: c.Password,
		header:   c.Header.Clone(),
		httpClient: &http.Client{
			Transport: rt,
			Timeout:   timeout,
		},
	}, nil
}

// Do performs an HTTP request with a raw body and returns the raw response
// body. Responses with status 400 or above are returned as *Error.
func (c *RESTClient) Do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	if resp.StatusCode >= 400 {
		return nil, NewError(string(data), resp.StatusCode)
	}
	return data, nil
}

// Send performs an HTTP request and unmarshals the response
func (c *RESTClient) Send(ctx context.Context, method, url string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request: %v", err)
		}
	}

	data, err := c.Do(ctx, method, url, nil, body)
	if err != nil {
		return err
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %v", err)
		}
	}
	return nil
}

// BuildURL constructs a URL from path segments and query parameters. Each
// segment is escaped on its own, so a segment may contain '/'.
func (c *RESTClient) BuildURL(params url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL.JoinPath(escaped...)
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}
