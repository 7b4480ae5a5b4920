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

// Package plugintest provides an announcement handler that records what a
// transport delivers.
package plugintest

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

// Recorder renders each delivery as a line: "<peer> <event>", "joined <peer>"
// or "left <peer>".
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *Recorder) HandleAnnouncement(ctx context.Context, evt events.AnnouncementEvent) error {
	r.add(evt.PeerID() + " " + evt.String())
	return nil
}

func (r *Recorder) HandlePeerJoined(ctx context.Context, peer string) error {
	r.add("joined " + peer)
	return nil
}

func (r *Recorder) HandlePeerLeft(ctx context.Context, peer string) error {
	r.add("left " + peer)
	return nil
}

func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *Recorder) Has(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, s)
}

// WaitFor polls until s has been recorded or two seconds have passed.
func (r *Recorder) WaitFor(t testing.TB, s string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Has(s) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got %v", s, r.Events())
}
