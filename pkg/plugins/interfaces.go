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

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

// AnnouncementHandler receives what a transport reads from the overlay.
type AnnouncementHandler interface {
	HandleAnnouncement(ctx context.Context, evt events.AnnouncementEvent) error
	// HandlePeerJoined is called when another bridge shows up, so that
	// transports without retained state can be brought up to date.
	HandlePeerJoined(ctx context.Context, peer string) error
	HandlePeerLeft(ctx context.Context, peer string) error
}

// Transport carries announcements between bridges.
type Transport interface {
	Name() string
	Type() string
	Connect(ctx context.Context) error
	Announce(ctx context.Context, evt events.AnnouncementEvent) error
	// Subscribe delivers overlay traffic to handler until ctx is done.
	Subscribe(ctx context.Context, handler AnnouncementHandler) error
	Disconnect(ctx context.Context) error
}

// DiscoverySink receives local graph changes.
type DiscoverySink interface {
	HandleDiscovery(ctx context.Context, evt events.DiscoveryEvent) error
}

// DiscoverySource reports the ROS2 interfaces of local nodes.
type DiscoverySource interface {
	Name() string
	Type() string
	Start(ctx context.Context, sink DiscoverySink) error
	Stop(ctx context.Context) error
}

// Feed streams admission decisions to external clients.
type Feed interface {
	Name() string
	Type() string
	Start(ctx context.Context, hub *feed.Hub) error
	Stop(ctx context.Context) error
}
