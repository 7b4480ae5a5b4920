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

// Package wire encodes announcement events for the overlay network.
//
// Every announcement lives on its own topic
//
//	@ros2_lv/<peer>/<kind code>/<key expression>
//
// whose payload is a CBOR Record. An empty payload on the same topic retires
// the announcement. Each bridge also holds a presence topic
// @ros2_lv/<peer>/@alive while it is connected.
package wire

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

const (
	Prefix       = "@ros2_lv"
	presenceLeaf = "@alive"
)

// SubscriptionFilter matches every announcement and presence topic.
const SubscriptionFilter = Prefix + "/#"

// Record is the payload of an Announced variant.
type Record struct {
	Type    string   `cbor:"1,keyasint"`
	Keyless bool     `cbor:"2,keyasint,omitempty"`
	QoS     core.QoS `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

func Topic(peer string, kind core.Kind, keyExpr string) string {
	return Prefix + "/" + peer + "/" + kind.Code() + "/" + keyExpr
}

func PresenceTopic(peer string) string {
	return Prefix + "/" + peer + "/" + presenceLeaf
}

// ParsePresence returns the peer of a presence topic.
func ParsePresence(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, Prefix+"/")
	if !ok {
		return "", false
	}
	peer, leaf, ok := strings.Cut(rest, "/")
	if !ok || peer == "" || leaf != presenceLeaf {
		return "", false
	}
	return peer, true
}

// ParseTopic splits an announcement topic into its parts.
func ParseTopic(topic string) (peer string, kind core.Kind, keyExpr string, err error) {
	rest, ok := strings.CutPrefix(topic, Prefix+"/")
	if !ok {
		return "", 0, "", fmt.Errorf("%w: topic=%s", core.ErrMalformedAnnouncement, topic)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", 0, "", fmt.Errorf("%w: topic=%s", core.ErrMalformedAnnouncement, topic)
	}
	kind, err = core.ParseKindCode(parts[1])
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: topic=%s: %w", core.ErrMalformedAnnouncement, topic, err)
	}
	return parts[0], kind, parts[2], nil
}

// Encode returns the topic and payload that publish evt. Retired variants
// have a nil payload.
func Encode(evt events.AnnouncementEvent) (string, []byte, error) {
	topic := Topic(evt.PeerID(), evt.Kind(), evt.RouteAddress())
	a, ok := events.AnnouncementOf(evt)
	if !ok {
		return topic, nil, nil
	}
	payload, err := encMode.Marshal(Record{Type: a.Ros2Type, Keyless: a.Keyless, QoS: a.QoS})
	if err != nil {
		return "", nil, fmt.Errorf("encode announcement: %w", err)
	}
	return topic, payload, nil
}

// Decode rebuilds the announcement event published on topic.
func Decode(topic string, payload []byte) (events.AnnouncementEvent, error) {
	peer, kind, ke, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return events.NewRetired(kind, peer, ke)
	}
	var rec Record
	if err := decMode.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("%w: topic=%s: %w", core.ErrMalformedAnnouncement, topic, err)
	}
	return events.NewAnnounced(kind, events.Announcement{
		Peer:     peer,
		KeyExpr:  ke,
		Ros2Type: rec.Type,
		Keyless:  rec.Keyless,
		QoS:      rec.QoS,
	})
}
