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
	"testing"

	"pgregory.net/rapid"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/keyexpr"
)

var chunkGen = rapid.StringMatching(`[a-z][a-z0-9_]{0,7}`)

func keyExprGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		chunks := rapid.SliceOfN(chunkGen, 1, 3).Draw(t, "chunks")
		ke := chunks[0]
		for _, c := range chunks[1:] {
			ke += "/" + c
		}
		return ke
	})
}

func kindGen() *rapid.Generator[core.Kind] {
	return rapid.SampledFrom(core.Kinds)
}

// rulesGen draws literal names so that membership is easy to predict.
func rulesGen() *rapid.Generator[*allowance.Rules] {
	names := rapid.SliceOfN(rapid.Map(keyExprGen(), func(ke string) string { return "/" + ke }), 0, 3)
	return rapid.Custom(func(t *rapid.T) *allowance.Rules {
		return &allowance.Rules{
			Publishers:     names.Draw(t, "publishers"),
			Subscribers:    names.Draw(t, "subscribers"),
			ServiceServers: names.Draw(t, "service_servers"),
			ServiceClients: names.Draw(t, "service_clients"),
			ActionServers:  names.Draw(t, "action_servers"),
			ActionClients:  names.Draw(t, "action_clients"),
			Nodes:          rapid.SliceOfN(chunkGen, 0, 3).Draw(t, "nodes"),
		}
	})
}

func allowanceGen() *rapid.Generator[*allowance.Allowance] {
	return rapid.Custom(func(t *rapid.T) *allowance.Allowance {
		rules := rulesGen().Draw(t, "rules")
		var a *allowance.Allowance
		var err error
		if rapid.Bool().Draw(t, "deny") {
			a, err = allowance.New(nil, rules)
		} else {
			a, err = allowance.New(rules, nil)
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return a
	})
}

func TestPropertyNoPolicyAllowsAll(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := kindGen().Draw(t, "kind")
		ke := keyExprGen().Draw(t, "ke")
		node := chunkGen.Draw(t, "node")

		iface, _ := core.NewInterface(kind, "/"+ke, "T")
		for _, disc := range []bool{true, false} {
			evt, _ := events.NewDiscoveryEvent(node, iface, disc)
			if !events.IsDiscoveryAllowed(evt, nil) {
				t.Fatalf("%s denied without policy", evt)
			}
		}

		ann, _ := events.NewAnnounced(kind, events.Announcement{Peer: "p", KeyExpr: ke})
		ret, _ := events.NewRetired(kind, "p", ke)
		for _, evt := range []events.AnnouncementEvent{ann, ret} {
			if !events.IsAnnouncementAllowed(evt, nil, nil) {
				t.Fatalf("%s denied without policy", evt)
			}
		}
	})
}

// An announcement of kind K on key expression Z is allowed exactly when the
// reciprocal kind would be allowed on the resolved name of Z.
func TestPropertyReciprocalMapping(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := allowanceGen().Draw(t, "allowance")
		kind := kindGen().Draw(t, "kind")
		ke := keyExprGen().Draw(t, "ke")
		ns := rapid.SampledFrom([]string{"/", "/bot1"}).Draw(t, "namespace")
		conv := keyexpr.NewConverter(ns)

		name, err := conv.Ros2Name(ke)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := core.KindAllowed(a, kind.Reciprocal(), name)

		ann, _ := events.NewAnnounced(kind, events.Announcement{Peer: "p", KeyExpr: ke})
		ret, _ := events.NewRetired(kind, "p", ke)
		if got := events.IsAnnouncementAllowed(ann, a, conv); got != want {
			t.Fatalf("%s: got %v, want %v", ann, got, want)
		}
		if got := events.IsAnnouncementAllowed(ret, a, conv); got != want {
			t.Fatalf("%s: got %v, want %v", ret, got, want)
		}
	})
}

// Deny lists need both axes to pass; allow lists need one of them.
func TestPropertyDiscoveryCombination(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := allowanceGen().Draw(t, "allowance")
		kind := kindGen().Draw(t, "kind")
		name := "/" + keyExprGen().Draw(t, "name")
		node := chunkGen.Draw(t, "node")

		iface, _ := core.NewInterface(kind, name, "T")
		evt, _ := events.NewDiscoveryEvent(node, iface, rapid.Bool().Draw(t, "discovered"))

		nodeOK := a.IsNodeAllowed(node)
		nameOK := core.KindAllowed(a, kind, name)
		want := nodeOK || nameOK
		if a.IsAllowByDefault() {
			want = nodeOK && nameOK
		}
		if got := events.IsDiscoveryAllowed(evt, a); got != want {
			t.Fatalf("%s under %s list: got %v, want %v", evt, a.Mode(), got, want)
		}
	})
}

func TestPropertyRenderingIsStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := kindGen().Draw(t, "kind")
		ke := keyExprGen().Draw(t, "ke")
		iface, _ := core.NewInterface(kind, "/"+ke, "T")
		disc, _ := events.NewDiscoveryEvent(chunkGen.Draw(t, "node"), iface, rapid.Bool().Draw(t, "discovered"))
		ann, _ := events.NewAnnounced(kind, events.Announcement{Peer: "p", KeyExpr: ke})

		if disc.String() != disc.String() || ann.String() != ann.String() {
			t.Fatal("rendering is not deterministic")
		}
	})
}
