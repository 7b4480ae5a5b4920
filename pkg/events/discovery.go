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

// Package events defines the discovery and announcement facts the bridge
// reacts to, and decides whether a policy allows bridging them.
package events

import "github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"

// DiscoveryEvent is a local ROS2 interface appearing or disappearing on the
// observed graph. The set of implementations is closed.
type DiscoveryEvent interface {
	Node() string
	Interface() core.Interface
	Discovered() bool
	String() string
	discoveryEvent()
}

type DiscoveredMsgPub struct {
	NodeName string
	Iface    core.MsgPub
}

type UndiscoveredMsgPub struct {
	NodeName string
	Iface    core.MsgPub
}

type DiscoveredMsgSub struct {
	NodeName string
	Iface    core.MsgSub
}

type UndiscoveredMsgSub struct {
	NodeName string
	Iface    core.MsgSub
}

type DiscoveredServiceSrv struct {
	NodeName string
	Iface    core.ServiceSrv
}

type UndiscoveredServiceSrv struct {
	NodeName string
	Iface    core.ServiceSrv
}

type DiscoveredServiceCli struct {
	NodeName string
	Iface    core.ServiceCli
}

type UndiscoveredServiceCli struct {
	NodeName string
	Iface    core.ServiceCli
}

type DiscoveredActionSrv struct {
	NodeName string
	Iface    core.ActionSrv
}

type UndiscoveredActionSrv struct {
	NodeName string
	Iface    core.ActionSrv
}

type DiscoveredActionCli struct {
	NodeName string
	Iface    core.ActionCli
}

type UndiscoveredActionCli struct {
	NodeName string
	Iface    core.ActionCli
}

func (e DiscoveredMsgPub) Node() string       { return e.NodeName }
func (e UndiscoveredMsgPub) Node() string     { return e.NodeName }
func (e DiscoveredMsgSub) Node() string       { return e.NodeName }
func (e UndiscoveredMsgSub) Node() string     { return e.NodeName }
func (e DiscoveredServiceSrv) Node() string   { return e.NodeName }
func (e UndiscoveredServiceSrv) Node() string { return e.NodeName }
func (e DiscoveredServiceCli) Node() string   { return e.NodeName }
func (e UndiscoveredServiceCli) Node() string { return e.NodeName }
func (e DiscoveredActionSrv) Node() string    { return e.NodeName }
func (e UndiscoveredActionSrv) Node() string  { return e.NodeName }
func (e DiscoveredActionCli) Node() string    { return e.NodeName }
func (e UndiscoveredActionCli) Node() string  { return e.NodeName }

func (e DiscoveredMsgPub) Interface() core.Interface       { return e.Iface }
func (e UndiscoveredMsgPub) Interface() core.Interface     { return e.Iface }
func (e DiscoveredMsgSub) Interface() core.Interface       { return e.Iface }
func (e UndiscoveredMsgSub) Interface() core.Interface     { return e.Iface }
func (e DiscoveredServiceSrv) Interface() core.Interface   { return e.Iface }
func (e UndiscoveredServiceSrv) Interface() core.Interface { return e.Iface }
func (e DiscoveredServiceCli) Interface() core.Interface   { return e.Iface }
func (e UndiscoveredServiceCli) Interface() core.Interface { return e.Iface }
func (e DiscoveredActionSrv) Interface() core.Interface    { return e.Iface }
func (e UndiscoveredActionSrv) Interface() core.Interface  { return e.Iface }
func (e DiscoveredActionCli) Interface() core.Interface    { return e.Iface }
func (e UndiscoveredActionCli) Interface() core.Interface  { return e.Iface }

func (DiscoveredMsgPub) Discovered() bool       { return true }
func (UndiscoveredMsgPub) Discovered() bool     { return false }
func (DiscoveredMsgSub) Discovered() bool       { return true }
func (UndiscoveredMsgSub) Discovered() bool     { return false }
func (DiscoveredServiceSrv) Discovered() bool   { return true }
func (UndiscoveredServiceSrv) Discovered() bool { return false }
func (DiscoveredServiceCli) Discovered() bool   { return true }
func (UndiscoveredServiceCli) Discovered() bool { return false }
func (DiscoveredActionSrv) Discovered() bool    { return true }
func (UndiscoveredActionSrv) Discovered() bool  { return false }
func (DiscoveredActionCli) Discovered() bool    { return true }
func (UndiscoveredActionCli) Discovered() bool  { return false }

func (e DiscoveredMsgPub) String() string       { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredMsgPub) String() string     { return undeclares(e.NodeName, e.Iface) }
func (e DiscoveredMsgSub) String() string       { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredMsgSub) String() string     { return undeclares(e.NodeName, e.Iface) }
func (e DiscoveredServiceSrv) String() string   { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredServiceSrv) String() string { return undeclares(e.NodeName, e.Iface) }
func (e DiscoveredServiceCli) String() string   { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredServiceCli) String() string { return undeclares(e.NodeName, e.Iface) }
func (e DiscoveredActionSrv) String() string    { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredActionSrv) String() string  { return undeclares(e.NodeName, e.Iface) }
func (e DiscoveredActionCli) String() string    { return declares(e.NodeName, e.Iface) }
func (e UndiscoveredActionCli) String() string  { return undeclares(e.NodeName, e.Iface) }

func (DiscoveredMsgPub) discoveryEvent()       {}
func (UndiscoveredMsgPub) discoveryEvent()     {}
func (DiscoveredMsgSub) discoveryEvent()       {}
func (UndiscoveredMsgSub) discoveryEvent()     {}
func (DiscoveredServiceSrv) discoveryEvent()   {}
func (UndiscoveredServiceSrv) discoveryEvent() {}
func (DiscoveredServiceCli) discoveryEvent()   {}
func (UndiscoveredServiceCli) discoveryEvent() {}
func (DiscoveredActionSrv) discoveryEvent()    {}
func (UndiscoveredActionSrv) discoveryEvent()  {}
func (DiscoveredActionCli) discoveryEvent()    {}
func (UndiscoveredActionCli) discoveryEvent()  {}

func declares(node string, iface core.Interface) string {
	return "Node " + node + " declares " + iface.String()
}

func undeclares(node string, iface core.Interface) string {
	return "Node " + node + " undeclares " + iface.String()
}

// NewDiscoveryEvent builds the variant matching the interface kind.
func NewDiscoveryEvent(node string, iface core.Interface, discovered bool) (DiscoveryEvent, error) {
	switch i := iface.(type) {
	case core.MsgPub:
		if discovered {
			return DiscoveredMsgPub{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredMsgPub{NodeName: node, Iface: i}, nil
	case core.MsgSub:
		if discovered {
			return DiscoveredMsgSub{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredMsgSub{NodeName: node, Iface: i}, nil
	case core.ServiceSrv:
		if discovered {
			return DiscoveredServiceSrv{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredServiceSrv{NodeName: node, Iface: i}, nil
	case core.ServiceCli:
		if discovered {
			return DiscoveredServiceCli{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredServiceCli{NodeName: node, Iface: i}, nil
	case core.ActionSrv:
		if discovered {
			return DiscoveredActionSrv{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredActionSrv{NodeName: node, Iface: i}, nil
	case core.ActionCli:
		if discovered {
			return DiscoveredActionCli{NodeName: node, Iface: i}, nil
		}
		return UndiscoveredActionCli{NodeName: node, Iface: i}, nil
	default:
		return nil, core.ErrUnknownKind
	}
}

// IsDiscoveryAllowed reports whether the policy allows bridging a local
// interface. A nil allowance allows everything.
//
// With a deny list both the node and the interface name must pass. With an
// allow list it is enough that one of them is listed.
func IsDiscoveryAllowed(evt DiscoveryEvent, allowance core.Allowance) bool {
	if allowance == nil {
		return true
	}

	// Node and interface rules are independent lists; the mode decides how
	// they combine.
	var nameAllowed func(string) bool
	switch evt.(type) {
	case DiscoveredMsgPub, UndiscoveredMsgPub:
		nameAllowed = allowance.IsPublisherAllowed
	case DiscoveredMsgSub, UndiscoveredMsgSub:
		nameAllowed = allowance.IsSubscriberAllowed
	case DiscoveredServiceSrv, UndiscoveredServiceSrv:
		nameAllowed = allowance.IsServiceSrvAllowed
	case DiscoveredServiceCli, UndiscoveredServiceCli:
		nameAllowed = allowance.IsServiceCliAllowed
	case DiscoveredActionSrv, UndiscoveredActionSrv:
		nameAllowed = allowance.IsActionSrvAllowed
	case DiscoveredActionCli, UndiscoveredActionCli:
		nameAllowed = allowance.IsActionCliAllowed
	default:
		return false
	}

	node, name := evt.Node(), evt.Interface().Ident().Name
	if allowance.IsAllowByDefault() {
		return allowance.IsNodeAllowed(node) && nameAllowed(name)
	}
	return allowance.IsNodeAllowed(node) || nameAllowed(name)
}
