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

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

// Transport keeps announcements on a compacted Kafka topic keyed by wire
// topic. A retirement is a tombstone. Every bridge run reads the topic from
// the first offset under its own consumer group.
type Transport struct {
	name    string
	brokers []string
	topic   string
	groupID string
	peerID  string
	writer  *kafka.Writer
	logger  *slog.Logger

	mu     sync.Mutex
	reader *kafka.Reader
}

var _ plugins.Transport = (*Transport)(nil)

func New(name string, brokers []string, topic, groupID, peerID string, logger *slog.Logger) *Transport {
	if topic == "" {
		topic = "ros2_lv"
	}
	return &Transport{
		name:    name,
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		peerID:  peerID,
		logger:  logger,
	}
}

func (t *Transport) Name() string { return t.name }
func (t *Transport) Type() string { return "kafka" }

func (t *Transport) Connect(ctx context.Context) error {
	t.writer = &kafka.Writer{
		Addr:                   kafka.TCP(t.brokers...),
		Topic:                  t.topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if err := t.write(ctx, wire.PresenceTopic(t.peerID), []byte("1")); err != nil {
		t.writer.Close()
		t.writer = nil
		return fmt.Errorf("kafka presence: %w", err)
	}
	t.logger.Info("kafka transport connected",
		"name", t.name,
		"brokers", strings.Join(t.brokers, ","),
		"topic", t.topic,
	)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.reader != nil {
		t.reader.Close()
		t.reader = nil
	}
	t.mu.Unlock()
	if t.writer == nil {
		return nil
	}
	if err := t.write(ctx, wire.PresenceTopic(t.peerID), nil); err != nil {
		t.logger.Warn("kafka presence clear failed", "name", t.name, "error", err)
	}
	return t.writer.Close()
}

func (t *Transport) Announce(ctx context.Context, evt events.AnnouncementEvent) error {
	if t.writer == nil {
		return core.ErrNotConnected
	}
	topic, payload, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	return t.write(ctx, topic, payload)
}

func (t *Transport) write(ctx context.Context, key string, value []byte) error {
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// GroupID is the consumer group for this bridge run.
func (t *Transport) GroupID() string {
	groupID := t.groupID
	if groupID == "" {
		groupID = "ros2dds-" + t.peerID
	}
	return groupID + "-" + uuid.New().String()[:8]
}

func (t *Transport) Subscribe(ctx context.Context, handler plugins.AnnouncementHandler) error {
	if t.writer == nil {
		return core.ErrNotConnected
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     t.brokers,
		Topic:       t.topic,
		GroupID:     t.GroupID(),
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	t.mu.Lock()
	t.reader = reader
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		if t.reader == reader {
			t.reader = nil
		}
		t.mu.Unlock()
		reader.Close()
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Error("kafka read error", "name", t.name, "error", err)
			return err
		}
		t.handle(ctx, handler, msg)
	}
}

// handle maps one record to the handler. The record key is the wire topic
// and a tombstone is a retirement.
func (t *Transport) handle(ctx context.Context, handler plugins.AnnouncementHandler, msg kafka.Message) {
	if err := plugins.Dispatch(ctx, handler, string(msg.Key), msg.Value, false); err != nil {
		t.logger.Warn("kafka message rejected", "name", t.name, "key", string(msg.Key), "error", err)
	}
}
