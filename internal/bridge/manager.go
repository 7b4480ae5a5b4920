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

// Package bridge keeps the route table in step with local discovery and
// remote announcements, consulting the allow/deny policy for every event.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/routing"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/keyexpr"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
)

type Options struct {
	// ID is this bridge's peer id on the overlay.
	ID         string
	Converter  keyexpr.Converter
	Policy     *allowance.Holder
	Routes     *routing.Table
	Transports map[string]plugins.Transport
	Logger     *slog.Logger
	Decisions  *logging.DecisionLogger
	Metrics    *metrics.Metrics
	Feed       *feed.Hub
}

type Manager struct {
	id         string
	conv       keyexpr.Converter
	policy     *allowance.Holder
	routes     *routing.Table
	transports map[string]plugins.Transport
	logger     *slog.Logger
	decisions  *logging.DecisionLogger
	metrics    *metrics.Metrics
	feed       *feed.Hub

	// mu serializes route mutations and the announcements they trigger.
	mu sync.Mutex
}

var (
	_ plugins.AnnouncementHandler = (*Manager)(nil)
	_ plugins.DiscoverySink       = (*Manager)(nil)
)

func NewManager(opts Options) *Manager {
	routes := opts.Routes
	if routes == nil {
		routes = routing.NewTable()
	}
	policy := opts.Policy
	if policy == nil {
		policy = allowance.NewHolder(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		id:         opts.ID,
		conv:       opts.Converter,
		policy:     policy,
		routes:     routes,
		transports: opts.Transports,
		logger:     logger,
		decisions:  opts.Decisions,
		metrics:    opts.Metrics,
		feed:       opts.Feed,
	}
}

// HandleDiscovery admits a local graph change and updates the route it
// belongs to. The first local node on a route announces it; the last one to
// leave retires it. An undeclaration always releases a node the route
// already holds, even when a reloaded policy would now deny it.
func (m *Manager) HandleDiscovery(ctx context.Context, evt events.DiscoveryEvent) error {
	ident := evt.Interface().Ident()
	allowed := events.IsDiscoveryAllowed(evt, m.policy.Snapshot())
	m.record(events.OriginDiscovery, evt.String(), ident.Kind, allowed)
	if !allowed && evt.Discovered() {
		return nil
	}

	ke, err := m.conv.KeyExpr(ident.Name)
	if err != nil {
		if !allowed {
			return nil
		}
		return fmt.Errorf("%s: %w", evt, err)
	}
	key := routing.Key{Kind: ident.Kind, KeyExpr: ke}

	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.Discovered() {
		return m.addLocal(ctx, key, ident, evt.Node())
	}
	if !allowed && !m.holdsNode(key, evt.Node()) {
		return nil
	}
	return m.removeLocal(ctx, key, evt.Node())
}

func (m *Manager) holdsNode(key routing.Key, node string) bool {
	route, ok := m.routes.Lookup(key)
	if !ok {
		return false
	}
	_, ok = route.LocalNodes[node]
	return ok
}

func (m *Manager) addLocal(ctx context.Context, key routing.Key, ident core.Ident, node string) error {
	route, ok := m.routes.Lookup(key)
	if !ok {
		route = core.NewRoute(key.Kind, key.KeyExpr, ident.Name, ident.Type)
		m.routes.Add(route)
		m.updateRouteGauge(key.Kind)
		m.logger.Info("route created", "kind", key.Kind.String(), "key_expr", key.KeyExpr, "ros2_name", ident.Name)
	} else if route.Ros2Type == "" {
		route.Ros2Type = ident.Type
	} else if ident.Type != "" && ident.Type != route.Ros2Type {
		m.logger.Warn("type mismatch on route, keeping existing type",
			"kind", key.Kind.String(),
			"key_expr", key.KeyExpr,
			"route_type", route.Ros2Type,
			"node_type", ident.Type,
		)
	}

	first := len(route.LocalNodes) == 0
	route.LocalNodes[node] = struct{}{}
	if !first {
		return nil
	}
	return m.announceRoute(ctx, route)
}

func (m *Manager) removeLocal(ctx context.Context, key routing.Key, node string) error {
	route, ok := m.routes.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: kind=%s key_expr=%s", core.ErrNoRoute, key.Kind, key.KeyExpr)
	}
	if _, ok := route.LocalNodes[node]; !ok {
		m.logger.Debug("node not on route", "node", node, "kind", key.Kind.String(), "key_expr", key.KeyExpr)
		return nil
	}
	delete(route.LocalNodes, node)

	var err error
	if len(route.LocalNodes) == 0 {
		err = m.retireRoute(ctx, route)
	}
	m.dropIfUnused(route)
	return err
}

// HandleAnnouncement admits an announcement from another bridge. The route
// it touches is keyed by the reciprocal kind, which is what the bridge
// serves locally for the remote interface. A retirement always releases the
// peer, whatever the current policy says.
func (m *Manager) HandleAnnouncement(ctx context.Context, evt events.AnnouncementEvent) error {
	if evt.PeerID() == m.id {
		return nil
	}
	allowed := events.IsAnnouncementAllowed(evt, m.policy.Snapshot(), m.conv)
	m.record(events.OriginAnnouncement, evt.String(), evt.Kind(), allowed)
	if !allowed && evt.Announced() {
		return nil
	}

	key := routing.Key{Kind: evt.Kind().Reciprocal(), KeyExpr: evt.RouteAddress()}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := events.AnnouncementOf(evt); ok {
		return m.addRemote(key, a)
	}
	m.removeRemote(key, evt.PeerID())
	return nil
}

func (m *Manager) addRemote(key routing.Key, a events.Announcement) error {
	route, ok := m.routes.Lookup(key)
	if !ok {
		name, err := m.conv.Ros2Name(key.KeyExpr)
		if err != nil {
			return err
		}
		route = core.NewRoute(key.Kind, key.KeyExpr, name, a.Ros2Type)
		m.routes.Add(route)
		m.updateRouteGauge(key.Kind)
		m.logger.Info("route created", "kind", key.Kind.String(), "key_expr", key.KeyExpr, "ros2_name", name, "peer", a.Peer)
	}
	route.RemotePeers[a.Peer] = core.Endpoint{Keyless: a.Keyless, QoS: a.QoS}
	return nil
}

func (m *Manager) removeRemote(key routing.Key, peer string) {
	route, ok := m.routes.Lookup(key)
	if !ok {
		return
	}
	delete(route.RemotePeers, peer)
	m.dropIfUnused(route)
}

// HandlePeerJoined announces every local route again for the benefit of a
// bridge that missed the earlier announcements.
func (m *Manager) HandlePeerJoined(ctx context.Context, peer string) error {
	if peer == m.id {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	count := 0
	for _, route := range m.routes.Routes() {
		if len(route.LocalNodes) == 0 {
			continue
		}
		count++
		if err := m.announceRoute(ctx, route); err != nil {
			errs = append(errs, err)
		}
	}
	m.logger.Info("peer joined", "peer", peer, "routes_replayed", count)
	return errors.Join(errs...)
}

// HandlePeerLeft forgets a bridge that went away without retiring its
// announcements.
func (m *Manager) HandlePeerLeft(ctx context.Context, peer string) error {
	if peer == m.id {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, route := range m.routes.Routes() {
		if _, ok := route.RemotePeers[peer]; !ok {
			continue
		}
		count++
		delete(route.RemotePeers, peer)
		m.dropIfUnused(route)
	}
	m.logger.Info("peer left", "peer", peer, "routes_released", count)
	return nil
}

// Close retires every route this bridge announced.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, route := range m.routes.Routes() {
		if len(route.LocalNodes) == 0 {
			continue
		}
		if err := m.retireRoute(ctx, route); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Routes returns a copy of the route table.
func (m *Manager) Routes() []*core.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	routes := m.routes.Routes()
	out := make([]*core.Route, len(routes))
	for i, r := range routes {
		out[i] = r.Clone()
	}
	return out
}

func (m *Manager) announceRoute(ctx context.Context, route *core.Route) error {
	evt, err := events.NewAnnounced(route.Kind, events.Announcement{
		Peer:     m.id,
		KeyExpr:  route.KeyExpr,
		Ros2Type: route.Ros2Type,
		Keyless:  route.Keyless,
		QoS:      route.QoS,
	})
	if err != nil {
		return err
	}
	return m.publish(ctx, evt)
}

func (m *Manager) retireRoute(ctx context.Context, route *core.Route) error {
	evt, err := events.NewRetired(route.Kind, m.id, route.KeyExpr)
	if err != nil {
		return err
	}
	return m.publish(ctx, evt)
}

func (m *Manager) publish(ctx context.Context, evt events.AnnouncementEvent) error {
	var errs []error
	for name, t := range m.transports {
		if err := t.Announce(ctx, evt); err != nil {
			m.logger.Error("announce failed", "transport", name, "event", evt.String(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) dropIfUnused(route *core.Route) {
	if !route.Unused() {
		return
	}
	m.routes.Remove(routing.KeyOf(route))
	m.updateRouteGauge(route.Kind)
	m.logger.Info("route removed", "kind", route.Kind.String(), "key_expr", route.KeyExpr)
}

func (m *Manager) updateRouteGauge(kind core.Kind) {
	m.metrics.SetRoutes(kind, m.routes.Count(kind))
}

func (m *Manager) record(origin, rendered string, kind core.Kind, allowed bool) {
	d := events.Decision{
		Origin:    origin,
		Event:     rendered,
		Kind:      kind.String(),
		Allowed:   allowed,
		Timestamp: time.Now().UTC(),
	}
	if m.decisions != nil {
		m.decisions.Log(d)
	}
	m.metrics.ObserveDecision(origin, kind, allowed)
	m.feed.Publish(d)
}
