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

package core

import "errors"

var (
	ErrUnknownKind           = errors.New("unknown interface kind")
	ErrUnresolvable          = errors.New("route address cannot be resolved to a ROS2 name")
	ErrInvalidKeyExpr        = errors.New("invalid key expression")
	ErrConflictingPolicy     = errors.New("allow and deny cannot be configured together")
	ErrInvalidPattern        = errors.New("invalid allowance pattern")
	ErrNoRoute               = errors.New("no route")
	ErrUnknownTransport      = errors.New("unknown transport type")
	ErrUnknownDiscovery      = errors.New("unknown discovery type")
	ErrUnknownFeed           = errors.New("unknown feed type")
	ErrMalformedAnnouncement = errors.New("malformed announcement")
	ErrNotConnected          = errors.New("transport not connected")
)
