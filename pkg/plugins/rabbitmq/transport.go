// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

// Transport broadcasts announcements through a fanout exchange. The broker
// keeps nothing, so a bridge that joins announces its presence and the
// others answer by announcing their routes again.
type Transport struct {
	name     string
	url      string
	exchange string
	peerID   string
	conn     *amqp.Connection
	logger   *slog.Logger

	mu    sync.Mutex
	pubCh *amqp.Channel
	subCh *amqp.Channel
}

var _ plugins.Transport = (*Transport)(nil)

func New(name, url, exchange, peerID string, logger *slog.Logger) *Transport {
	if exchange == "" {
		exchange = "ros2_lv"
	}
	return &Transport{
		name:     name,
		url:      url,
		exchange: exchange,
		peerID:   peerID,
		logger:   logger,
	}
}

func (t *Transport) Name() string { return t.name }
func (t *Transport) Type() string { return "rabbitmq" }

func (t *Transport) Connect(ctx context.Context) error {
	var err error
	t.conn, err = amqp.Dial(t.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	pubCh, err := t.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq publish channel: %w", err)
	}
	if err := pubCh.ExchangeDeclare(t.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		pubCh.Close()
		return fmt.Errorf("rabbitmq exchange declare %s: %w", t.exchange, err)
	}

	t.mu.Lock()
	t.pubCh = pubCh
	t.mu.Unlock()

	t.logger.Info("rabbitmq transport connected", "name", t.name, "exchange", t.exchange)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}
	if err := t.publish(ctx, wire.PresenceTopic(t.peerID), nil); err != nil {
		t.logger.Warn("rabbitmq presence clear failed", "name", t.name, "error", err)
	}
	t.mu.Lock()
	if t.subCh != nil {
		t.subCh.Close()
		t.subCh = nil
	}
	if t.pubCh != nil {
		t.pubCh.Close()
		t.pubCh = nil
	}
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *Transport) Announce(ctx context.Context, evt events.AnnouncementEvent) error {
	topic, payload, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	return t.publish(ctx, topic, payload)
}

// publish carries the wire topic in the message type, since the exchange
// does not route on it.
func (t *Transport) publish(ctx context.Context, topic string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubCh == nil {
		return core.ErrNotConnected
	}
	return t.pubCh.PublishWithContext(ctx,
		t.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/cbor",
			Type:        topic,
			Body:        payload,
			MessageId:   uuid.New().String(),
			AppId:       t.peerID,
		},
	)
}

func (t *Transport) Subscribe(ctx context.Context, handler plugins.AnnouncementHandler) error {
	if t.conn == nil {
		return core.ErrNotConnected
	}
	subCh, err := t.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}

	q, err := subCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		subCh.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := subCh.QueueBind(q.Name, "", t.exchange, false, nil); err != nil {
		subCh.Close()
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	consumerTag := fmt.Sprintf("ros2dds-%s-%s", t.name, t.peerID)
	deliveries, err := subCh.Consume(q.Name, consumerTag, true, true, false, false, nil)
	if err != nil {
		subCh.Close()
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	t.mu.Lock()
	t.subCh = subCh
	t.mu.Unlock()

	// Only announce presence once the queue is bound, so that no answer is
	// missed.
	if err := t.publish(ctx, wire.PresenceTopic(t.peerID), []byte("1")); err != nil {
		return fmt.Errorf("rabbitmq presence: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			t.handle(ctx, handler, d)
		}
	}
}

// handle maps one delivery to the handler. The wire topic is the message
// type; presence from another bridge is reported as a join.
func (t *Transport) handle(ctx context.Context, handler plugins.AnnouncementHandler, d amqp.Delivery) {
	if err := plugins.Dispatch(ctx, handler, d.Type, d.Body, true); err != nil {
		t.logger.Warn("rabbitmq message rejected", "name", t.name, "topic", d.Type, "error", err)
	}
}
