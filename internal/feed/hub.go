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

// Package feed fans admission decisions out to live subscribers.
package feed

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

// Hub never blocks a publisher: a subscriber whose buffer is full misses
// the decision.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]chan events.Decision
	size    int
	closed  bool
	dropped atomic.Uint64
	logger  *slog.Logger
}

func NewHub(size int, logger *slog.Logger) *Hub {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]chan events.Decision),
		size:   size,
		logger: logger,
	}
}

// Subscribe registers a subscriber under id. The returned function
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(id string) (<-chan events.Decision, func()) {
	ch := make(chan events.Decision, h.size)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if old, ok := h.subs[id]; ok {
		close(old)
	}
	h.subs[id] = ch
	h.mu.Unlock()

	h.logger.Info("feed subscriber added", "subscriber_id", id)
	return ch, func() { h.unsubscribe(id, ch) }
}

func (h *Hub) unsubscribe(id string, ch chan events.Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.subs[id]; ok && cur == ch {
		delete(h.subs, id)
		close(ch)
		h.logger.Info("feed subscriber removed", "subscriber_id", id)
	}
}

func (h *Hub) Publish(d events.Decision) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- d:
		default:
			h.dropped.Add(1)
			h.logger.Warn("feed subscriber full, dropping decision", "subscriber_id", id)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later subscriptions are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.closed = true
}
