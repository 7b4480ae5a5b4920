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

package static

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) HandleDiscovery(ctx context.Context, evt events.DiscoveryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt.String())
	return nil
}

func (r *recordingSink) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestSourceDeclaresAndUndeclares(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	src := New("local", []Declaration{
		{Node: "/talker", Iface: core.MsgPub{Name: "/chatter", Type: "std_msgs/msg/String"}},
		{Node: "/adder", Iface: core.ServiceSrv{Name: "/add", Type: "example_interfaces/srv/AddTwoInts"}},
	}, logger)

	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Start(ctx, sink) }()

	deadline := time.Now().Add(time.Second)
	for len(sink.Events()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("declarations were not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := src.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"Node /talker declares Publisher /chatter",
		"Node /adder declares Service Server /add",
		"Node /adder undeclares Service Server /add",
		"Node /talker undeclares Publisher /chatter",
	}
	got := sink.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	// A second stop has nothing left to undeclare.
	src.Stop(context.Background())
	if len(sink.Events()) != len(want) {
		t.Fatal("second stop undeclared again")
	}
}

func TestStopBeforeStart(t *testing.T) {
	src := New("local", nil, slog.Default())
	if err := src.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
