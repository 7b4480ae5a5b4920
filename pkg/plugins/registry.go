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

package plugins

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
)

type Registry struct {
	transports map[string]Transport
	sources    map[string]DiscoverySource
	feeds      map[string]Feed
	healthy    map[string]bool
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		transports: make(map[string]Transport),
		sources:    make(map[string]DiscoverySource),
		feeds:      make(map[string]Feed),
		healthy:    make(map[string]bool),
		logger:     logger,
	}
}

func (r *Registry) RegisterTransport(t Transport) {
	r.mu.Lock()
	r.transports[t.Name()] = t
	r.mu.Unlock()
	r.logger.Info("registered transport", "name", t.Name(), "type", t.Type())
}

func (r *Registry) RegisterDiscoverySource(s DiscoverySource) {
	r.mu.Lock()
	r.sources[s.Name()] = s
	r.mu.Unlock()
	r.logger.Info("registered discovery source", "name", s.Name(), "type", s.Type())
}

func (r *Registry) RegisterFeed(f Feed) {
	r.mu.Lock()
	r.feeds[f.Name()] = f
	r.mu.Unlock()
	r.logger.Info("registered feed", "name", f.Name(), "type", f.Type())
}

// Transports returns the transports that connected successfully.
func (r *Registry) Transports() map[string]Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]Transport, len(r.transports))
	for k, v := range r.transports {
		if r.healthy[k] {
			cp[k] = v
		}
	}
	return cp
}

func (r *Registry) ConnectTransports(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	connected := 0
	for name, t := range r.transports {
		if err := t.Connect(ctx); err != nil {
			r.logger.Error("transport connect failed", "name", name, "error", err)
			r.healthy[name] = false
		} else {
			r.healthy[name] = true
			connected++
		}
	}
	return connected
}

func (r *Registry) IsTransportHealthy(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy[name]
}

// StartTransports subscribes every connected transport on behalf of handler.
func (r *Registry) StartTransports(ctx context.Context, handler AnnouncementHandler) {
	for name, t := range r.Transports() {
		go func(n string, t Transport) {
			if err := t.Subscribe(ctx, handler); err != nil {
				r.logger.Error("transport subscription failed", "name", n, "error", err)
			}
		}(name, t)
	}
}

func (r *Registry) StartDiscoverySources(ctx context.Context, sink DiscoverySink) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, s := range r.sources {
		go func(n string, s DiscoverySource) {
			if err := s.Start(ctx, sink); err != nil {
				r.logger.Error("discovery source failed", "name", n, "error", err)
			}
		}(name, s)
	}
}

func (r *Registry) StartFeeds(ctx context.Context, hub *feed.Hub) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, f := range r.feeds {
		go func(n string, f Feed) {
			if err := f.Start(ctx, hub); err != nil {
				r.logger.Error("feed failed", "name", n, "error", err)
			}
		}(name, f)
	}
}

// StopSources stops discovery sources first so that their last
// undeclarations still reach the transports.
func (r *Registry) StopSources(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, s := range r.sources {
		r.logger.Info("stopping discovery source", "name", name)
		if err := s.Stop(ctx); err != nil {
			r.logger.Warn("discovery source stop error", "name", name, "error", err)
		}
	}
}

func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, f := range r.feeds {
		r.logger.Info("stopping feed", "name", name)
		f.Stop(ctx)
	}
	for name, t := range r.transports {
		r.logger.Info("stopping transport", "name", name)
		t.Disconnect(ctx)
	}
}
