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

import "fmt"

// Kind is the closed set of ROS2 interface kinds the bridge mirrors.
type Kind int

const (
	KindPublisher Kind = iota
	KindSubscriber
	KindServiceServer
	KindServiceClient
	KindActionServer
	KindActionClient
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindPublisher,
	KindSubscriber,
	KindServiceServer,
	KindServiceClient,
	KindActionServer,
	KindActionClient,
}

func (k Kind) String() string {
	switch k {
	case KindPublisher:
		return "Publisher"
	case KindSubscriber:
		return "Subscriber"
	case KindServiceServer:
		return "Service Server"
	case KindServiceClient:
		return "Service Client"
	case KindActionServer:
		return "Action Server"
	case KindActionClient:
		return "Action Client"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Reciprocal returns the kind the bridge creates locally when a remote
// bridge announces an interface of kind k.
func (k Kind) Reciprocal() Kind {
	switch k {
	case KindPublisher:
		return KindSubscriber
	case KindSubscriber:
		return KindPublisher
	case KindServiceServer:
		return KindServiceClient
	case KindServiceClient:
		return KindServiceServer
	case KindActionServer:
		return KindActionClient
	case KindActionClient:
		return KindActionServer
	default:
		return k
	}
}

// Code is the two-letter code used on the overlay network.
func (k Kind) Code() string {
	switch k {
	case KindPublisher:
		return "MP"
	case KindSubscriber:
		return "MS"
	case KindServiceServer:
		return "SS"
	case KindServiceClient:
		return "SC"
	case KindActionServer:
		return "AS"
	case KindActionClient:
		return "AC"
	default:
		return ""
	}
}

func ParseKindCode(code string) (Kind, error) {
	for _, k := range Kinds {
		if k.Code() == code {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: code=%q", ErrUnknownKind, code)
}

// ParseKind accepts the configuration spelling of a kind ("publisher",
// "service_server", ...).
func ParseKind(s string) (Kind, error) {
	switch s {
	case "publisher", "pub":
		return KindPublisher, nil
	case "subscriber", "sub":
		return KindSubscriber, nil
	case "service_server":
		return KindServiceServer, nil
	case "service_client":
		return KindServiceClient, nil
	case "action_server":
		return KindActionServer, nil
	case "action_client":
		return KindActionClient, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Ident is the part of an interface record admission and routing look at.
type Ident struct {
	Kind Kind
	Name string
	Type string
}

// Interface is implemented by the six interface identity records.
type Interface interface {
	Ident() Ident
	String() string
}

type MsgPub struct {
	Name    string
	Type    string
	Writers map[string]struct{}
}

func (p MsgPub) Ident() Ident   { return Ident{Kind: KindPublisher, Name: p.Name, Type: p.Type} }
func (p MsgPub) String() string { return render(KindPublisher, p.Name) }

type MsgSub struct {
	Name    string
	Type    string
	Readers map[string]struct{}
}

func (s MsgSub) Ident() Ident   { return Ident{Kind: KindSubscriber, Name: s.Name, Type: s.Type} }
func (s MsgSub) String() string { return render(KindSubscriber, s.Name) }

// ServiceSrvEntities holds the DDS GUIDs backing a service server.
type ServiceSrvEntities struct {
	RequestReader string
	ReplyWriter   string
}

type ServiceCliEntities struct {
	RequestWriter string
	ReplyReader   string
}

type ActionSrvEntities struct {
	SendGoal       ServiceSrvEntities
	CancelGoal     ServiceSrvEntities
	GetResult      ServiceSrvEntities
	StatusWriter   string
	FeedbackWriter string
}

type ActionCliEntities struct {
	SendGoal       ServiceCliEntities
	CancelGoal     ServiceCliEntities
	GetResult      ServiceCliEntities
	StatusReader   string
	FeedbackReader string
}

type ServiceSrv struct {
	Name     string
	Type     string
	Entities ServiceSrvEntities
}

func (s ServiceSrv) Ident() Ident   { return Ident{Kind: KindServiceServer, Name: s.Name, Type: s.Type} }
func (s ServiceSrv) String() string { return render(KindServiceServer, s.Name) }

type ServiceCli struct {
	Name     string
	Type     string
	Entities ServiceCliEntities
}

func (s ServiceCli) Ident() Ident   { return Ident{Kind: KindServiceClient, Name: s.Name, Type: s.Type} }
func (s ServiceCli) String() string { return render(KindServiceClient, s.Name) }

type ActionSrv struct {
	Name     string
	Type     string
	Entities ActionSrvEntities
}

func (a ActionSrv) Ident() Ident   { return Ident{Kind: KindActionServer, Name: a.Name, Type: a.Type} }
func (a ActionSrv) String() string { return render(KindActionServer, a.Name) }

type ActionCli struct {
	Name     string
	Type     string
	Entities ActionCliEntities
}

func (a ActionCli) Ident() Ident   { return Ident{Kind: KindActionClient, Name: a.Name, Type: a.Type} }
func (a ActionCli) String() string { return render(KindActionClient, a.Name) }

func render(k Kind, name string) string {
	return k.String() + " " + name
}

// NewInterface builds the identity record of the given kind with empty
// entity sets.
func NewInterface(kind Kind, name, typ string) (Interface, error) {
	switch kind {
	case KindPublisher:
		return MsgPub{Name: name, Type: typ, Writers: map[string]struct{}{}}, nil
	case KindSubscriber:
		return MsgSub{Name: name, Type: typ, Readers: map[string]struct{}{}}, nil
	case KindServiceServer:
		return ServiceSrv{Name: name, Type: typ}, nil
	case KindServiceClient:
		return ServiceCli{Name: name, Type: typ}, nil
	case KindActionServer:
		return ActionSrv{Name: name, Type: typ}, nil
	case KindActionClient:
		return ActionCli{Name: name, Type: typ}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

type Reliability int

const (
	ReliabilityBestEffort Reliability = iota
	ReliabilityReliable
)

type Durability int

const (
	DurabilityVolatile Durability = iota
	DurabilityTransientLocal
)

type History int

const (
	HistoryKeepLast History = iota
	HistoryKeepAll
)

// QoS is carried alongside pub/sub announcements. Admission never looks at it.
type QoS struct {
	Reliability  Reliability `cbor:"1,keyasint,omitempty" json:"reliability" yaml:"reliability"`
	Durability   Durability  `cbor:"2,keyasint,omitempty" json:"durability" yaml:"durability"`
	History      History     `cbor:"3,keyasint,omitempty" json:"history" yaml:"history"`
	HistoryDepth int32       `cbor:"4,keyasint,omitempty" json:"history_depth" yaml:"history_depth"`
}

// Endpoint holds what one remote peer announced for a route.
type Endpoint struct {
	Keyless bool
	QoS     QoS
}

// Route is one bridged route. It is keyed by Kind and KeyExpr, where Kind is
// the ROS2-side role the bridge plays for the route. Keyless and QoS describe
// the local side and are what this bridge announces; each remote peer keeps
// its own in RemotePeers.
type Route struct {
	Kind        Kind
	KeyExpr     string
	Ros2Name    string
	Ros2Type    string
	Keyless     bool
	QoS         QoS
	LocalNodes  map[string]struct{}
	RemotePeers map[string]Endpoint
}

func NewRoute(kind Kind, keyExpr, ros2Name, ros2Type string) *Route {
	return &Route{
		Kind:        kind,
		KeyExpr:     keyExpr,
		Ros2Name:    ros2Name,
		Ros2Type:    ros2Type,
		LocalNodes:  make(map[string]struct{}),
		RemotePeers: make(map[string]Endpoint),
	}
}

// Unused reports whether neither a local node nor a remote peer uses the route.
func (r *Route) Unused() bool {
	return len(r.LocalNodes) == 0 && len(r.RemotePeers) == 0
}

func (r *Route) Clone() *Route {
	cp := *r
	cp.LocalNodes = make(map[string]struct{}, len(r.LocalNodes))
	for n := range r.LocalNodes {
		cp.LocalNodes[n] = struct{}{}
	}
	cp.RemotePeers = make(map[string]Endpoint, len(r.RemotePeers))
	for p, e := range r.RemotePeers {
		cp.RemotePeers[p] = e
	}
	return &cp
}
