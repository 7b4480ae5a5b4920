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

package events_test

import (
	"errors"
	"testing"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/keyexpr"
)

type failingResolver struct{}

func (failingResolver) Ros2Name(string) (string, error) {
	return "", errors.New("boom")
}

func announced(t *testing.T, kind core.Kind, ke string) events.AnnouncementEvent {
	t.Helper()
	evt, err := events.NewAnnounced(kind, events.Announcement{Peer: "peer1", KeyExpr: ke, Ros2Type: "T"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return evt
}

func retired(t *testing.T, kind core.Kind, ke string) events.AnnouncementEvent {
	t.Helper()
	evt, err := events.NewRetired(kind, "peer1", ke)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return evt
}

func TestAnnouncementReciprocalRule(t *testing.T) {
	// Only the reciprocal kind's list mentions "/t".
	for _, kind := range core.Kinds {
		rules := &allowance.Rules{}
		switch kind.Reciprocal() {
		case core.KindPublisher:
			rules.Publishers = []string{"/t"}
		case core.KindSubscriber:
			rules.Subscribers = []string{"/t"}
		case core.KindServiceServer:
			rules.ServiceServers = []string{"/t"}
		case core.KindServiceClient:
			rules.ServiceClients = []string{"/t"}
		case core.KindActionServer:
			rules.ActionServers = []string{"/t"}
		case core.KindActionClient:
			rules.ActionClients = []string{"/t"}
		}
		a := mustAllowance(t, rules, nil)

		if !events.IsAnnouncementAllowed(announced(t, kind, "t"), a, nil) {
			t.Errorf("announced %s on t: expected allowed by %s rule", kind, kind.Reciprocal())
		}
		if !events.IsAnnouncementAllowed(retired(t, kind, "t"), a, nil) {
			t.Errorf("retired %s on t: expected allowed by %s rule", kind, kind.Reciprocal())
		}
		if events.IsAnnouncementAllowed(announced(t, kind, "other"), a, nil) {
			t.Errorf("announced %s on other: expected denied", kind)
		}
	}
}

func TestAnnouncementOwnKindRuleIsIgnored(t *testing.T) {
	// Allowing publishers on "/t" says nothing about a remote publisher,
	// which would create a local subscriber.
	a := mustAllowance(t, &allowance.Rules{Publishers: []string{"/t"}}, nil)
	if events.IsAnnouncementAllowed(events.AnnouncedMsgPub{Peer: "p", KeyExpr: "t"}, a, nil) {
		t.Fatal("expected remote publisher to be checked against the subscriber rule")
	}
	if !events.IsAnnouncementAllowed(events.AnnouncedMsgSub{Peer: "p", KeyExpr: "t"}, a, nil) {
		t.Fatal("expected remote subscriber to be checked against the publisher rule")
	}
}

func TestAnnouncementIgnoresNodeRules(t *testing.T) {
	a := mustAllowance(t, nil, &allowance.Rules{Nodes: []string{".*"}})
	if !events.IsAnnouncementAllowed(events.AnnouncedMsgPub{Peer: "p", KeyExpr: "t"}, a, nil) {
		t.Fatal("node rules must not apply to announcements")
	}
}

func TestAnnouncementNamespaceResolution(t *testing.T) {
	a := mustAllowance(t, &allowance.Rules{Subscribers: []string{"/bot1/chatter"}}, nil)
	conv := keyexpr.NewConverter("/bot1")
	if !events.IsAnnouncementAllowed(events.AnnouncedMsgPub{Peer: "p", KeyExpr: "chatter"}, a, conv) {
		t.Fatal("expected key expression to resolve inside the bridge namespace")
	}
	if events.IsAnnouncementAllowed(events.AnnouncedMsgPub{Peer: "p", KeyExpr: "chatter"}, a, nil) {
		t.Fatal("expected root resolution to miss the namespaced rule")
	}
}

func TestAnnouncementUnresolvableIsDenied(t *testing.T) {
	a := mustAllowance(t, nil, &allowance.Rules{})
	evt := events.AnnouncedMsgPub{Peer: "p", KeyExpr: "t"}
	if events.IsAnnouncementAllowed(evt, a, failingResolver{}) {
		t.Fatal("expected resolution failure to deny")
	}
	if events.IsAnnouncementAllowed(events.RetiredMsgSub{Peer: "p", KeyExpr: "a//b"}, a, keyexpr.NewConverter("/")) {
		t.Fatal("expected invalid key expression to deny")
	}
	// Without a policy nothing is resolved and everything passes.
	if !events.IsAnnouncementAllowed(evt, nil, failingResolver{}) {
		t.Fatal("expected allow without policy")
	}
}

func TestAnnouncementNoPolicy(t *testing.T) {
	for _, kind := range core.Kinds {
		if !events.IsAnnouncementAllowed(announced(t, kind, "x"), nil, nil) {
			t.Errorf("announced %s: expected allowed without policy", kind)
		}
		if !events.IsAnnouncementAllowed(retired(t, kind, "x"), nil, nil) {
			t.Errorf("retired %s: expected allowed without policy", kind)
		}
	}
}

func TestAnnouncementString(t *testing.T) {
	tests := []struct {
		evt  events.AnnouncementEvent
		want string
	}{
		{events.AnnouncedMsgPub{KeyExpr: "chatter"}, "announces Publisher chatter"},
		{events.RetiredMsgPub{KeyExpr: "chatter"}, "retires Publisher chatter"},
		{events.AnnouncedMsgSub{KeyExpr: "chatter"}, "announces Subscriber chatter"},
		{events.RetiredMsgSub{KeyExpr: "chatter"}, "retires Subscriber chatter"},
		{events.AnnouncedServiceSrv{KeyExpr: "add"}, "announces Service Server add"},
		{events.RetiredServiceSrv{KeyExpr: "add"}, "retires Service Server add"},
		{events.AnnouncedServiceCli{KeyExpr: "add"}, "announces Service Client add"},
		{events.RetiredServiceCli{KeyExpr: "add"}, "retires Service Client add"},
		{events.AnnouncedActionSrv{KeyExpr: "fib"}, "announces Action Server fib"},
		{events.RetiredActionSrv{KeyExpr: "fib"}, "retires Action Server fib"},
		{events.AnnouncedActionCli{KeyExpr: "fib"}, "announces Action Client fib"},
		{events.RetiredActionCli{KeyExpr: "fib"}, "retires Action Client fib"},
	}
	for _, tt := range tests {
		if got := tt.evt.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestAnnouncementOf(t *testing.T) {
	qos := core.QoS{Reliability: core.ReliabilityReliable, HistoryDepth: 10}
	evt, err := events.NewAnnounced(core.KindSubscriber, events.Announcement{
		Peer: "p", KeyExpr: "k", Ros2Type: "std_msgs/msg/String", Keyless: true, QoS: qos,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, ok := evt.(events.AnnouncedMsgSub)
	if !ok {
		t.Fatalf("expected AnnouncedMsgSub, got %T", evt)
	}
	if sub.ReaderQoS != qos || !sub.Keyless {
		t.Fatalf("unexpected payload: %+v", sub)
	}

	a, ok := events.AnnouncementOf(evt)
	if !ok || a.QoS != qos || a.Ros2Type != "std_msgs/msg/String" {
		t.Fatalf("unexpected announcement: %+v", a)
	}
	if _, ok := events.AnnouncementOf(events.RetiredMsgSub{}); ok {
		t.Fatal("expected retired variant to carry no announcement")
	}

	srv, _ := events.NewAnnounced(core.KindServiceServer, events.Announcement{Peer: "p", KeyExpr: "k", Keyless: true, QoS: qos})
	if a, _ := events.AnnouncementOf(srv); a.Keyless || a.QoS != (core.QoS{}) {
		t.Fatal("expected service announcement to drop keyless and QoS")
	}
}
