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

package mqtt5

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

// Transport keeps announcements as retained messages on an MQTT v5 broker.
// A late joiner receives every live announcement when it subscribes. The
// presence topic is retained too, with an empty will that clears it when the
// bridge drops off.
type Transport struct {
	name      string
	brokerURL string
	peerID    string
	cm        *autopaho.ConnectionManager
	logger    *slog.Logger

	mu      sync.Mutex
	handler plugins.AnnouncementHandler
	subCtx  context.Context
	// seen records the retained topics of each remote peer so they can be
	// cleared when the peer goes away.
	seen map[string]map[string]struct{}
}

var _ plugins.Transport = (*Transport)(nil)

func New(name, brokerURL, peerID string, logger *slog.Logger) *Transport {
	return &Transport{
		name:      name,
		brokerURL: brokerURL,
		peerID:    peerID,
		logger:    logger,
		seen:      make(map[string]map[string]struct{}),
	}
}

func (t *Transport) Name() string { return t.name }
func (t *Transport) Type() string { return "mqtt5" }

func (t *Transport) Connect(ctx context.Context) error {
	serverURL, err := url.Parse(t.brokerURL)
	if err != nil {
		return fmt.Errorf("mqtt5 invalid URL: %w", err)
	}

	presence := wire.PresenceTopic(t.peerID)
	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		WillMessage: &paho.WillMessage{
			Topic:  presence,
			QoS:    1,
			Retain: true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			t.logger.Info("mqtt5 connection up", "name", t.name)
			// Runs on every reconnect: the will may have cleared presence.
			if _, err := cm.Publish(context.Background(), &paho.Publish{
				Topic:   presence,
				QoS:     1,
				Retain:  true,
				Payload: []byte("1"),
			}); err != nil {
				t.logger.Error("mqtt5 presence publish failed", "name", t.name, "error", err)
			}
			t.resubscribe(cm)
		},
		OnConnectError: func(err error) {
			t.logger.Warn("mqtt5 connection attempt failed", "name", t.name, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "ros2dds-" + t.peerID + "-" + uuid.New().String()[:8],
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					t.receive(pr.Packet)
					return true, nil
				},
			},
		},
	}

	t.cm, err = autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mqtt5 connection: %w", err)
	}

	if err := t.cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("mqtt5 await connection: %w", err)
	}

	t.logger.Info("mqtt5 transport connected", "name", t.name, "broker", t.brokerURL)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	if t.cm == nil {
		return nil
	}
	if _, err := t.cm.Publish(ctx, &paho.Publish{
		Topic:  wire.PresenceTopic(t.peerID),
		QoS:    1,
		Retain: true,
	}); err != nil {
		t.logger.Warn("mqtt5 presence clear failed", "name", t.name, "error", err)
	}
	return t.cm.Disconnect(ctx)
}

func (t *Transport) Announce(ctx context.Context, evt events.AnnouncementEvent) error {
	if t.cm == nil {
		return core.ErrNotConnected
	}
	topic, payload, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	_, err = t.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     1,
		Retain:  true,
		Payload: payload,
	})
	return err
}

func (t *Transport) Subscribe(ctx context.Context, handler plugins.AnnouncementHandler) error {
	if t.cm == nil {
		return core.ErrNotConnected
	}
	t.mu.Lock()
	t.handler = handler
	t.subCtx = ctx
	t.mu.Unlock()

	if err := t.subscribe(ctx, t.cm); err != nil {
		return err
	}
	<-ctx.Done()

	t.mu.Lock()
	t.handler = nil
	t.mu.Unlock()
	return nil
}

func (t *Transport) subscribe(ctx context.Context, cm *autopaho.ConnectionManager) error {
	_, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: wire.SubscriptionFilter, QoS: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("mqtt5 subscribe: %w", err)
	}
	return nil
}

func (t *Transport) resubscribe(cm *autopaho.ConnectionManager) {
	t.mu.Lock()
	active := t.handler != nil
	ctx := t.subCtx
	t.mu.Unlock()
	if !active {
		return
	}
	go func() {
		if err := t.subscribe(ctx, cm); err != nil && ctx.Err() == nil {
			t.logger.Error("mqtt5 resubscribe failed", "name", t.name, "error", err)
		}
	}()
}

func (t *Transport) receive(p *paho.Publish) {
	t.mu.Lock()
	handler, ctx := t.handler, t.subCtx
	t.mu.Unlock()
	if handler == nil {
		return
	}

	t.track(p.Topic, len(p.Payload) == 0)
	if err := plugins.Dispatch(ctx, handler, p.Topic, p.Payload, false); err != nil {
		t.logger.Warn("mqtt5 message rejected", "name", t.name, "topic", p.Topic, "error", err)
	}
	if peer, ok := wire.ParsePresence(p.Topic); ok && len(p.Payload) == 0 && peer != t.peerID {
		t.clearPeer(ctx, peer)
	}
}

func (t *Transport) track(topic string, cleared bool) {
	peer, _, _, err := wire.ParseTopic(topic)
	if err != nil || peer == t.peerID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cleared {
		delete(t.seen[peer], topic)
		return
	}
	if t.seen[peer] == nil {
		t.seen[peer] = make(map[string]struct{})
	}
	t.seen[peer][topic] = struct{}{}
}

// clearPeer removes the retained announcements of a peer that went away
// without retiring them.
func (t *Transport) clearPeer(ctx context.Context, peer string) {
	t.mu.Lock()
	topics := t.seen[peer]
	delete(t.seen, peer)
	t.mu.Unlock()
	if t.cm == nil || len(topics) == 0 {
		return
	}

	go func() {
		for topic := range topics {
			if _, err := t.cm.Publish(ctx, &paho.Publish{Topic: topic, QoS: 1, Retain: true}); err != nil {
				t.logger.Warn("mqtt5 retained clear failed", "name", t.name, "topic", topic, "error", err)
			}
		}
	}()
}
