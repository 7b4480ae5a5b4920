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

package amqp1

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Azure/go-amqp"
	"github.com/google/uuid"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

// DefaultAddress is a multicast address in the ActiveMQ naming scheme.
const DefaultAddress = "topic://ros2_lv"

// Transport broadcasts announcements on an AMQP 1.0 multicast address. The
// wire topic travels as the message subject. Like the rabbitmq transport it
// keeps nothing, so joins trigger a replay from the other bridges.
type Transport struct {
	name    string
	url     string
	address string
	peerID  string
	logger  *slog.Logger

	mu       sync.Mutex
	conn     *amqp.Conn
	session  *amqp.Session
	sender   *amqp.Sender
	receiver *amqp.Receiver
}

var _ plugins.Transport = (*Transport)(nil)

func New(name, url, address, peerID string, logger *slog.Logger) *Transport {
	if address == "" {
		address = DefaultAddress
	}
	return &Transport{
		name:    name,
		url:     url,
		address: address,
		peerID:  peerID,
		logger:  logger,
	}
}

func (t *Transport) Name() string { return t.name }
func (t *Transport) Type() string { return "amqp1" }

func (t *Transport) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("amqp1 dial: %w", err)
	}
	session, err := conn.NewSession(ctx, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp1 session: %w", err)
	}
	sender, err := session.NewSender(ctx, t.address, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp1 sender %s: %w", t.address, err)
	}

	t.mu.Lock()
	t.conn, t.session, t.sender = conn, session, sender
	t.mu.Unlock()

	t.logger.Info("amqp1 transport connected", "name", t.name, "address", t.address)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := t.send(ctx, wire.PresenceTopic(t.peerID), nil); err != nil {
		t.logger.Warn("amqp1 presence clear failed", "name", t.name, "error", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.receiver != nil {
		t.receiver.Close(ctx)
		t.receiver = nil
	}
	if t.sender != nil {
		t.sender.Close(ctx)
		t.sender = nil
	}
	if t.session != nil {
		t.session.Close(ctx)
		t.session = nil
	}
	t.conn = nil
	return conn.Close()
}

func (t *Transport) Announce(ctx context.Context, evt events.AnnouncementEvent) error {
	topic, payload, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	return t.send(ctx, topic, payload)
}

func (t *Transport) send(ctx context.Context, topic string, payload []byte) error {
	t.mu.Lock()
	sender := t.sender
	t.mu.Unlock()
	if sender == nil {
		return core.ErrNotConnected
	}
	return sender.Send(ctx, newMessage(topic, payload, t.peerID), nil)
}

func newMessage(topic string, payload []byte, peerID string) *amqp.Message {
	subject := topic
	return &amqp.Message{
		Data: [][]byte{payload},
		Properties: &amqp.MessageProperties{
			MessageID: uuid.New().String(),
			Subject:   &subject,
		},
		ApplicationProperties: map[string]any{"peer": peerID},
	}
}

// topicOf reads the wire topic back from a received message.
func topicOf(msg *amqp.Message) (string, bool) {
	if msg.Properties == nil || msg.Properties.Subject == nil {
		return "", false
	}
	return *msg.Properties.Subject, true
}

func (t *Transport) Subscribe(ctx context.Context, handler plugins.AnnouncementHandler) error {
	t.mu.Lock()
	session := t.session
	t.mu.Unlock()
	if session == nil {
		return core.ErrNotConnected
	}

	receiver, err := session.NewReceiver(ctx, t.address, &amqp.ReceiverOptions{
		Credit: 16,
	})
	if err != nil {
		return fmt.Errorf("amqp1 receiver %s: %w", t.address, err)
	}
	t.mu.Lock()
	t.receiver = receiver
	t.mu.Unlock()

	// Presence goes out once the receiver is attached, so that no answer is
	// missed.
	if err := t.send(ctx, wire.PresenceTopic(t.peerID), []byte("1")); err != nil {
		return fmt.Errorf("amqp1 presence: %w", err)
	}

	for {
		msg, err := receiver.Receive(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("amqp1 receive: %w", err)
		}
		if err := receiver.AcceptMessage(ctx, msg); err != nil {
			t.logger.Warn("amqp1 accept failed", "name", t.name, "error", err)
		}
		t.handle(ctx, handler, msg)
	}
}

// handle maps one message to the handler, reading the wire topic from the
// subject.
func (t *Transport) handle(ctx context.Context, handler plugins.AnnouncementHandler, msg *amqp.Message) {
	topic, ok := topicOf(msg)
	if !ok {
		t.logger.Warn("amqp1 message without subject", "name", t.name)
		return
	}
	if err := plugins.Dispatch(ctx, handler, topic, msg.GetData(), true); err != nil {
		t.logger.Warn("amqp1 message rejected", "name", t.name, "topic", topic, "error", err)
	}
}
