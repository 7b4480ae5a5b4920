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

// Allowance answers allow/deny questions for one policy snapshot.
// Implementations must be safe for concurrent use and must not change while
// a check is in progress.
type Allowance interface {
	// IsAllowByDefault reports whether names that no rule mentions are
	// allowed, which is the case when the policy is a deny list.
	IsAllowByDefault() bool
	IsNodeAllowed(name string) bool
	IsPublisherAllowed(name string) bool
	IsSubscriberAllowed(name string) bool
	IsServiceSrvAllowed(name string) bool
	IsServiceCliAllowed(name string) bool
	IsActionSrvAllowed(name string) bool
	IsActionCliAllowed(name string) bool
}

// NameResolver maps an overlay route address back to a ROS2 name.
type NameResolver interface {
	Ros2Name(routeAddress string) (string, error)
}

// KindAllowed dispatches to the name test of the given kind. Unknown kinds
// are never allowed.
func KindAllowed(a Allowance, kind Kind, name string) bool {
	switch kind {
	case KindPublisher:
		return a.IsPublisherAllowed(name)
	case KindSubscriber:
		return a.IsSubscriberAllowed(name)
	case KindServiceServer:
		return a.IsServiceSrvAllowed(name)
	case KindServiceClient:
		return a.IsServiceCliAllowed(name)
	case KindActionServer:
		return a.IsActionSrvAllowed(name)
	case KindActionClient:
		return a.IsActionCliAllowed(name)
	default:
		return false
	}
}
