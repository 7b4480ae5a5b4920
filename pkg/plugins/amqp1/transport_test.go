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
	"errors"
	"log/slog"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/Azure/go-amqp"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/plugintest"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDefaults(t *testing.T) {
	tr := New("artemis", "amqp://localhost:5672", "", "self", testLogger())
	if tr.address != DefaultAddress {
		t.Fatalf("expected default address %s, got %s", DefaultAddress, tr.address)
	}
	if tr.Name() != "artemis" || tr.Type() != "amqp1" {
		t.Fatalf("unexpected identity %s/%s", tr.Name(), tr.Type())
	}
}

func TestNotConnected(t *testing.T) {
	tr := New("artemis", "amqp://localhost:5672", "", "self", testLogger())
	ctx := context.Background()

	if err := tr.Announce(ctx, events.AnnouncedActionSrv{Peer: "self", KeyExpr: "fib"}); !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := tr.Subscribe(ctx, nil); !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := tr.Disconnect(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tr := New("artemis", "amqp://127.0.0.1:1", "", "self", testLogger())
	if err := tr.Connect(ctx); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestMessageCarriesTopic(t *testing.T) {
	topic := wire.Topic("self", core.KindServiceClient, "add")
	msg := newMessage(topic, []byte{0xa0}, "self")

	got, ok := topicOf(msg)
	if !ok || got != topic {
		t.Fatalf("expected subject %s, got %q", topic, got)
	}
	if string(msg.GetData()) != string([]byte{0xa0}) {
		t.Fatalf("unexpected body %x", msg.GetData())
	}
	if msg.ApplicationProperties["peer"] != "self" {
		t.Fatalf("expected peer property, got %v", msg.ApplicationProperties)
	}

	if _, ok := topicOf(&amqp.Message{}); ok {
		t.Fatal("expected message without properties to have no topic")
	}
}

func TestHandleMessages(t *testing.T) {
	tr := New("artemis", "amqp://localhost:5672", "", "self", testLogger())
	rec := &plugintest.Recorder{}
	ctx := context.Background()

	topic, payload, err := wire.Encode(events.AnnouncedActionSrv{Peer: "r", KeyExpr: "fib", Ros2Type: "T"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := []*amqp.Message{
		newMessage(wire.PresenceTopic("r"), []byte("1"), "r"),
		newMessage(topic, payload, "r"),
		newMessage(topic, nil, "r"),
		{Data: [][]byte{payload}},
		newMessage(wire.PresenceTopic("r"), nil, "r"),
	}
	for _, msg := range messages {
		tr.handle(ctx, rec, msg)
	}

	want := []string{
		"joined r",
		"r announces Action Server fib",
		"r retires Action Server fib",
		"left r",
	}
	if got := rec.Events(); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
