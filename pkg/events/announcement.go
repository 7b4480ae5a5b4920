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

package events

import (
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

// AnnouncementEvent is a remote bridge creating or removing a bridged route.
// The set of implementations is closed.
type AnnouncementEvent interface {
	PeerID() string
	RouteAddress() string
	Kind() core.Kind
	Announced() bool
	String() string
	announcementEvent()
}

type AnnouncedMsgPub struct {
	Peer      string
	KeyExpr   string
	Ros2Type  string
	Keyless   bool
	WriterQoS core.QoS
}

type RetiredMsgPub struct {
	Peer    string
	KeyExpr string
}

type AnnouncedMsgSub struct {
	Peer      string
	KeyExpr   string
	Ros2Type  string
	Keyless   bool
	ReaderQoS core.QoS
}

type RetiredMsgSub struct {
	Peer    string
	KeyExpr string
}

type AnnouncedServiceSrv struct {
	Peer     string
	KeyExpr  string
	Ros2Type string
}

type RetiredServiceSrv struct {
	Peer    string
	KeyExpr string
}

type AnnouncedServiceCli struct {
	Peer     string
	KeyExpr  string
	Ros2Type string
}

type RetiredServiceCli struct {
	Peer    string
	KeyExpr string
}

type AnnouncedActionSrv struct {
	Peer     string
	KeyExpr  string
	Ros2Type string
}

type RetiredActionSrv struct {
	Peer    string
	KeyExpr string
}

type AnnouncedActionCli struct {
	Peer     string
	KeyExpr  string
	Ros2Type string
}

type RetiredActionCli struct {
	Peer    string
	KeyExpr string
}

func (e AnnouncedMsgPub) PeerID() string     { return e.Peer }
func (e RetiredMsgPub) PeerID() string       { return e.Peer }
func (e AnnouncedMsgSub) PeerID() string     { return e.Peer }
func (e RetiredMsgSub) PeerID() string       { return e.Peer }
func (e AnnouncedServiceSrv) PeerID() string { return e.Peer }
func (e RetiredServiceSrv) PeerID() string   { return e.Peer }
func (e AnnouncedServiceCli) PeerID() string { return e.Peer }
func (e RetiredServiceCli) PeerID() string   { return e.Peer }
func (e AnnouncedActionSrv) PeerID() string  { return e.Peer }
func (e RetiredActionSrv) PeerID() string    { return e.Peer }
func (e AnnouncedActionCli) PeerID() string  { return e.Peer }
func (e RetiredActionCli) PeerID() string    { return e.Peer }

func (e AnnouncedMsgPub) RouteAddress() string     { return e.KeyExpr }
func (e RetiredMsgPub) RouteAddress() string       { return e.KeyExpr }
func (e AnnouncedMsgSub) RouteAddress() string     { return e.KeyExpr }
func (e RetiredMsgSub) RouteAddress() string       { return e.KeyExpr }
func (e AnnouncedServiceSrv) RouteAddress() string { return e.KeyExpr }
func (e RetiredServiceSrv) RouteAddress() string   { return e.KeyExpr }
func (e AnnouncedServiceCli) RouteAddress() string { return e.KeyExpr }
func (e RetiredServiceCli) RouteAddress() string   { return e.KeyExpr }
func (e AnnouncedActionSrv) RouteAddress() string  { return e.KeyExpr }
func (e RetiredActionSrv) RouteAddress() string    { return e.KeyExpr }
func (e AnnouncedActionCli) RouteAddress() string  { return e.KeyExpr }
func (e RetiredActionCli) RouteAddress() string    { return e.KeyExpr }

func (AnnouncedMsgPub) Kind() core.Kind     { return core.KindPublisher }
func (RetiredMsgPub) Kind() core.Kind       { return core.KindPublisher }
func (AnnouncedMsgSub) Kind() core.Kind     { return core.KindSubscriber }
func (RetiredMsgSub) Kind() core.Kind       { return core.KindSubscriber }
func (AnnouncedServiceSrv) Kind() core.Kind { return core.KindServiceServer }
func (RetiredServiceSrv) Kind() core.Kind   { return core.KindServiceServer }
func (AnnouncedServiceCli) Kind() core.Kind { return core.KindServiceClient }
func (RetiredServiceCli) Kind() core.Kind   { return core.KindServiceClient }
func (AnnouncedActionSrv) Kind() core.Kind  { return core.KindActionServer }
func (RetiredActionSrv) Kind() core.Kind    { return core.KindActionServer }
func (AnnouncedActionCli) Kind() core.Kind  { return core.KindActionClient }
func (RetiredActionCli) Kind() core.Kind    { return core.KindActionClient }

func (AnnouncedMsgPub) Announced() bool     { return true }
func (RetiredMsgPub) Announced() bool       { return false }
func (AnnouncedMsgSub) Announced() bool     { return true }
func (RetiredMsgSub) Announced() bool       { return false }
func (AnnouncedServiceSrv) Announced() bool { return true }
func (RetiredServiceSrv) Announced() bool   { return false }
func (AnnouncedServiceCli) Announced() bool { return true }
func (RetiredServiceCli) Announced() bool   { return false }
func (AnnouncedActionSrv) Announced() bool  { return true }
func (RetiredActionSrv) Announced() bool    { return false }
func (AnnouncedActionCli) Announced() bool  { return true }
func (RetiredActionCli) Announced() bool    { return false }

func (e AnnouncedMsgPub) String() string     { return announces(e) }
func (e RetiredMsgPub) String() string       { return retires(e) }
func (e AnnouncedMsgSub) String() string     { return announces(e) }
func (e RetiredMsgSub) String() string       { return retires(e) }
func (e AnnouncedServiceSrv) String() string { return announces(e) }
func (e RetiredServiceSrv) String() string   { return retires(e) }
func (e AnnouncedServiceCli) String() string { return announces(e) }
func (e RetiredServiceCli) String() string   { return retires(e) }
func (e AnnouncedActionSrv) String() string  { return announces(e) }
func (e RetiredActionSrv) String() string    { return retires(e) }
func (e AnnouncedActionCli) String() string  { return announces(e) }
func (e RetiredActionCli) String() string    { return retires(e) }

func (AnnouncedMsgPub) announcementEvent()     {}
func (RetiredMsgPub) announcementEvent()       {}
func (AnnouncedMsgSub) announcementEvent()     {}
func (RetiredMsgSub) announcementEvent()       {}
func (AnnouncedServiceSrv) announcementEvent() {}
func (RetiredServiceSrv) announcementEvent()   {}
func (AnnouncedServiceCli) announcementEvent() {}
func (RetiredServiceCli) announcementEvent()   {}
func (AnnouncedActionSrv) announcementEvent()  {}
func (RetiredActionSrv) announcementEvent()    {}
func (AnnouncedActionCli) announcementEvent()  {}
func (RetiredActionCli) announcementEvent()    {}

func announces(e AnnouncementEvent) string {
	return "announces " + e.Kind().String() + " " + e.RouteAddress()
}

func retires(e AnnouncementEvent) string {
	return "retires " + e.Kind().String() + " " + e.RouteAddress()
}

// Announcement carries what an Announced variant needs beyond its kind.
type Announcement struct {
	Peer     string
	KeyExpr  string
	Ros2Type string
	Keyless  bool
	QoS      core.QoS
}

// NewAnnounced builds the Announced variant of the given kind. QoS and Keyless
// are dropped for services and actions.
func NewAnnounced(kind core.Kind, a Announcement) (AnnouncementEvent, error) {
	switch kind {
	case core.KindPublisher:
		return AnnouncedMsgPub{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type, Keyless: a.Keyless, WriterQoS: a.QoS}, nil
	case core.KindSubscriber:
		return AnnouncedMsgSub{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type, Keyless: a.Keyless, ReaderQoS: a.QoS}, nil
	case core.KindServiceServer:
		return AnnouncedServiceSrv{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type}, nil
	case core.KindServiceClient:
		return AnnouncedServiceCli{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type}, nil
	case core.KindActionServer:
		return AnnouncedActionSrv{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type}, nil
	case core.KindActionClient:
		return AnnouncedActionCli{Peer: a.Peer, KeyExpr: a.KeyExpr, Ros2Type: a.Ros2Type}, nil
	default:
		return nil, core.ErrUnknownKind
	}
}

func NewRetired(kind core.Kind, peer, keyExpr string) (AnnouncementEvent, error) {
	switch kind {
	case core.KindPublisher:
		return RetiredMsgPub{Peer: peer, KeyExpr: keyExpr}, nil
	case core.KindSubscriber:
		return RetiredMsgSub{Peer: peer, KeyExpr: keyExpr}, nil
	case core.KindServiceServer:
		return RetiredServiceSrv{Peer: peer, KeyExpr: keyExpr}, nil
	case core.KindServiceClient:
		return RetiredServiceCli{Peer: peer, KeyExpr: keyExpr}, nil
	case core.KindActionServer:
		return RetiredActionSrv{Peer: peer, KeyExpr: keyExpr}, nil
	case core.KindActionClient:
		return RetiredActionCli{Peer: peer, KeyExpr: keyExpr}, nil
	default:
		return nil, core.ErrUnknownKind
	}
}

// AnnouncementOf returns the payload of an Announced variant. ok is false for
// Retired variants.
func AnnouncementOf(evt AnnouncementEvent) (a Announcement, ok bool) {
	switch e := evt.(type) {
	case AnnouncedMsgPub:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type, Keyless: e.Keyless, QoS: e.WriterQoS}, true
	case AnnouncedMsgSub:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type, Keyless: e.Keyless, QoS: e.ReaderQoS}, true
	case AnnouncedServiceSrv:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type}, true
	case AnnouncedServiceCli:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type}, true
	case AnnouncedActionSrv:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type}, true
	case AnnouncedActionCli:
		return Announcement{Peer: e.Peer, KeyExpr: e.KeyExpr, Ros2Type: e.Ros2Type}, true
	default:
		return Announcement{}, false
	}
}

// rootNamespace resolves route addresses when the caller passes no resolver.
type rootNamespace struct{}

func (rootNamespace) Ros2Name(routeAddress string) (string, error) {
	if routeAddress == "" {
		return "", core.ErrUnresolvable
	}
	return "/" + routeAddress, nil
}

// IsAnnouncementAllowed reports whether the policy allows reacting to a
// remote announcement. The check uses the rule of the kind the bridge would
// create locally: a remote Publisher is checked against the Subscriber rule,
// and so on. Node rules are not evaluated. A route address the resolver
// rejects is denied.
func IsAnnouncementAllowed(evt AnnouncementEvent, allowance core.Allowance, resolver core.NameResolver) bool {
	if allowance == nil {
		return true
	}
	if resolver == nil {
		resolver = rootNamespace{}
	}

	// Announcements carry no node names, so only the name rule applies.
	name, err := resolver.Ros2Name(evt.RouteAddress())
	if err != nil {
		return false
	}

	switch evt.(type) {
	case AnnouncedMsgPub, RetiredMsgPub:
		return allowance.IsSubscriberAllowed(name)
	case AnnouncedMsgSub, RetiredMsgSub:
		return allowance.IsPublisherAllowed(name)
	case AnnouncedServiceSrv, RetiredServiceSrv:
		return allowance.IsServiceCliAllowed(name)
	case AnnouncedServiceCli, RetiredServiceCli:
		return allowance.IsServiceSrvAllowed(name)
	case AnnouncedActionSrv, RetiredActionSrv:
		return allowance.IsActionCliAllowed(name)
	case AnnouncedActionCli, RetiredActionCli:
		return allowance.IsActionSrvAllowed(name)
	default:
		return false
	}
}
