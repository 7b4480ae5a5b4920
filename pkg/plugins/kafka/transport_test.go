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
	"errors"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/plugintest"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDefaults(t *testing.T) {
	tr := New("kafka-main", []string{"localhost:9092"}, "", "", "self", testLogger())
	if tr.topic != "ros2_lv" {
		t.Fatalf("expected default topic ros2_lv, got %s", tr.topic)
	}
	if tr.Name() != "kafka-main" || tr.Type() != "kafka" {
		t.Fatalf("unexpected identity %s/%s", tr.Name(), tr.Type())
	}
}

func TestGroupIDIsPerRun(t *testing.T) {
	tr := New("kafka-main", nil, "t", "bridges", "self", testLogger())
	a, b := tr.GroupID(), tr.GroupID()
	if a == b {
		t.Fatal("expected a fresh group id per call")
	}
	if !strings.HasPrefix(a, "bridges-") {
		t.Fatalf("expected configured prefix, got %s", a)
	}

	tr = New("kafka-main", nil, "t", "", "self", testLogger())
	if !strings.HasPrefix(tr.GroupID(), "ros2dds-self-") {
		t.Fatalf("expected peer based group id, got %s", tr.GroupID())
	}
}

func TestNotConnected(t *testing.T) {
	tr := New("kafka-main", []string{"localhost:9092"}, "t", "", "self", testLogger())
	ctx := context.Background()

	if err := tr.Announce(ctx, events.RetiredMsgPub{Peer: "self", KeyExpr: "x"}); !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := tr.Subscribe(ctx, nil); !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := tr.Disconnect(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleRecords(t *testing.T) {
	tr := New("kafka-main", []string{"localhost:9092"}, "t", "", "self", testLogger())
	rec := &plugintest.Recorder{}
	ctx := context.Background()

	topic, payload, err := wire.Encode(events.AnnouncedMsgSub{Peer: "r", KeyExpr: "chatter", Ros2Type: "std_msgs/msg/String"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := []kafka.Message{
		{Key: []byte(topic), Value: payload},
		{Key: []byte(topic)},
		{Key: []byte(wire.PresenceTopic("r")), Value: []byte("1")},
		{Key: []byte(wire.PresenceTopic("r"))},
		{Key: []byte("not/a/wire/topic"), Value: payload},
	}
	for _, msg := range records {
		tr.handle(ctx, rec, msg)
	}

	want := []string{
		"r announces Subscriber chatter",
		"r retires Subscriber chatter",
		"left r",
	}
	if got := rec.Events(); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
