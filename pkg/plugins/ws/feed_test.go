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

package ws

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

func TestFeedStreamsDecisions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := feed.NewHub(4, logger)
	f := New("decisions", 0, logger)
	f.hub = hub

	srv := httptest.NewServer(http.HandlerFunc(f.handleConnection))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(events.Decision{Origin: events.OriginDiscovery, Event: "Node /n declares Publisher /a", Kind: "Publisher", Allowed: true})

	var got events.Decision
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Event != "Node /n declares Publisher /a" || !got.Allowed {
		t.Fatalf("unexpected decision %+v", got)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline = time.Now().Add(time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription was not released after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
