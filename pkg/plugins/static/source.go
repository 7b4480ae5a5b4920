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

// Package static is a discovery source that declares a fixed set of ROS2
// interfaces, taken from the configuration, for as long as it runs.
package static

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
)

// Declaration is one interface owned by one node.
type Declaration struct {
	Node  string
	Iface core.Interface
}

type Source struct {
	name   string
	decls  []Declaration
	logger *slog.Logger

	mu       sync.Mutex
	sink     plugins.DiscoverySink
	declared []Declaration
}

var _ plugins.DiscoverySource = (*Source)(nil)

func New(name string, decls []Declaration, logger *slog.Logger) *Source {
	return &Source{name: name, decls: decls, logger: logger}
}

func (s *Source) Name() string { return s.name }
func (s *Source) Type() string { return "static" }

// Start declares every interface and then waits for ctx.
func (s *Source) Start(ctx context.Context, sink plugins.DiscoverySink) error {
	s.mu.Lock()
	s.sink = sink
	for _, d := range s.decls {
		evt, err := events.NewDiscoveryEvent(d.Node, d.Iface, true)
		if err != nil {
			s.logger.Error("invalid declaration", "name", s.name, "node", d.Node, "error", err)
			continue
		}
		if err := sink.HandleDiscovery(ctx, evt); err != nil {
			s.logger.Error("declaration failed", "name", s.name, "event", evt.String(), "error", err)
		}
		s.declared = append(s.declared, d)
	}
	count := len(s.declared)
	s.mu.Unlock()

	s.logger.Info("static discovery started", "name", s.name, "interfaces", count)
	<-ctx.Done()
	return nil
}

// Stop undeclares, in reverse order, what Start declared.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return nil
	}
	for i := len(s.declared) - 1; i >= 0; i-- {
		d := s.declared[i]
		evt, err := events.NewDiscoveryEvent(d.Node, d.Iface, false)
		if err != nil {
			continue
		}
		if err := s.sink.HandleDiscovery(ctx, evt); err != nil {
			s.logger.Warn("undeclaration failed", "name", s.name, "event", evt.String(), "error", err)
		}
	}
	s.declared = nil
	return nil
}
