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
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/datakaveri/rs-maintenance/pkg/config"
)

// AMQPBinder binds queues to exchanges over an AMQP connection.
type AMQPBinder struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// AMQPURI returns the amqps URI of the broker listener in cfg.
func AMQPURI(cfg config.Broker) string {
	u := url.URL{
		Scheme:  "amqps",
		User:    url.UserPassword(cfg.User, cfg.Password),
		Host:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:    "/" + cfg.Vhost,
		RawPath: "/" + url.PathEscape(cfg.Vhost),
	}
	return u.String()
}

// DialAMQP connects to the broker listener in cfg.
func DialAMQP(cfg config.Broker) (*AMQPBinder, error) {
	conn, err := amqp.DialTLS(AMQPURI(cfg), &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &AMQPBinder{conn: conn}, nil
}

// Bind binds queue to exchange with routingKey. The broker closes the
// channel when a bind fails, so a closed channel is reopened first.
func (b *AMQPBinder) Bind(exchange, queue, routingKey string) error {
	if b.ch == nil || b.ch.IsClosed() {
		ch, err := b.conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		b.ch = ch
	}
	if err := b.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", exchange, queue, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (b *AMQPBinder) Close() error {
	if b.ch != nil && !b.ch.IsClosed() {
		b.ch.Close()
	}
	return b.conn.Close()
}
