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

package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

const DefaultKey = "ros2_lv:retained"

// channelPattern matches every wire topic used as a pub/sub channel.
const channelPattern = wire.Prefix + "/*"

// Config holds the Redis connection settings of one transport.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Key names the hash that retains live announcements, one field per
	// wire topic.
	Key string
}

// Transport retains announcements in a Redis hash and streams changes over
// pub/sub, with the wire topic as channel name. A subscriber replays the hash
// once its pattern subscription is active, so nothing published in between
// is lost.
type Transport struct {
	name   string
	cfg    Config
	peerID string
	client *redis.Client
	logger *slog.Logger
}

var _ plugins.Transport = (*Transport)(nil)

func New(name string, cfg Config, peerID string, logger *slog.Logger) *Transport {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	return &Transport{
		name:   name,
		cfg:    cfg,
		peerID: peerID,
		logger: logger,
	}
}

func (t *Transport) Name() string { return t.name }
func (t *Transport) Type() string { return "redis" }

func (t *Transport) Connect(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     t.cfg.Addr,
		Password: t.cfg.Password,
		DB:       t.cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("redis connection failed: %w", err)
	}
	t.client = client

	if err := t.put(ctx, wire.PresenceTopic(t.peerID), []byte("1")); err != nil {
		return fmt.Errorf("redis presence: %w", err)
	}

	t.logger.Info("redis transport connected", "name", t.name, "addr", t.cfg.Addr, "key", t.cfg.Key)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	if t.client == nil {
		return nil
	}
	if err := t.put(ctx, wire.PresenceTopic(t.peerID), nil); err != nil {
		t.logger.Warn("redis presence clear failed", "name", t.name, "error", err)
	}
	return t.client.Close()
}

func (t *Transport) Announce(ctx context.Context, evt events.AnnouncementEvent) error {
	if t.client == nil {
		return core.ErrNotConnected
	}
	topic, payload, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	return t.put(ctx, topic, payload)
}

// put stores or, for an empty payload, deletes the retained value and
// publishes the change in the same transaction.
func (t *Transport) put(ctx context.Context, topic string, payload []byte) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(payload) == 0 {
			pipe.HDel(ctx, t.cfg.Key, topic)
		} else {
			pipe.HSet(ctx, t.cfg.Key, topic, payload)
		}
		pipe.Publish(ctx, topic, payload)
		return nil
	})
	return err
}

func (t *Transport) Subscribe(ctx context.Context, handler plugins.AnnouncementHandler) error {
	if t.client == nil {
		return core.ErrNotConnected
	}
	pubsub := t.client.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	retained, err := t.client.HGetAll(ctx, t.cfg.Key).Result()
	if err != nil {
		return fmt.Errorf("redis replay: %w", err)
	}
	for topic, payload := range retained {
		t.dispatch(ctx, handler, topic, []byte(payload))
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			t.dispatch(ctx, handler, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (t *Transport) dispatch(ctx context.Context, handler plugins.AnnouncementHandler, topic string, payload []byte) {
	if err := plugins.Dispatch(ctx, handler, topic, payload, false); err != nil {
		t.logger.Warn("redis message rejected", "name", t.name, "topic", topic, "error", err)
	}
	if peer, ok := wire.ParsePresence(topic); ok && len(payload) == 0 && peer != t.peerID {
		if err := t.clearPeer(ctx, peer); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Warn("redis retained clear failed", "name", t.name, "peer", peer, "error", err)
		}
	}
}

// clearPeer drops the retained announcements of a peer that went away
// without retiring them. Every surviving bridge may run it; HDEL of a
// missing field is a no-op.
func (t *Transport) clearPeer(ctx context.Context, peer string) error {
	fields, err := t.client.HKeys(ctx, t.cfg.Key).Result()
	if err != nil {
		return err
	}
	prefix := wire.Prefix + "/" + peer + "/"
	var stale []string
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			stale = append(stale, f)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return t.client.HDel(ctx, t.cfg.Key, stale...).Err()
}
