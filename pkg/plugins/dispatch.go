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

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/wire"
)

// Dispatch hands one overlay message to handler. An empty presence payload
// means the peer left. A non-empty one is reported as a join only when
// notifyJoin is set, for transports that do not retain announcements.
func Dispatch(ctx context.Context, handler AnnouncementHandler, topic string, payload []byte, notifyJoin bool) error {
	if peer, ok := wire.ParsePresence(topic); ok {
		if len(payload) == 0 {
			return handler.HandlePeerLeft(ctx, peer)
		}
		if notifyJoin {
			return handler.HandlePeerJoined(ctx, peer)
		}
		return nil
	}
	evt, err := wire.Decode(topic, payload)
	if err != nil {
		return err
	}
	return handler.HandleAnnouncement(ctx, evt)
}
