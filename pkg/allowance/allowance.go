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

// Package allowance implements the allow/deny policy consulted before any
// ROS2 interface is bridged.
package allowance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

type Mode int

const (
	ModeAllow Mode = iota
	ModeDeny
)

func (m Mode) String() string {
	if m == ModeDeny {
		return "deny"
	}
	return "allow"
}

// Rules is the "allow" or "deny" section of the bridge configuration. Every
// entry is a regular expression matched against the whole name.
type Rules struct {
	Publishers     []string `yaml:"publishers,omitempty" json:"publishers,omitempty"`
	Subscribers    []string `yaml:"subscribers,omitempty" json:"subscribers,omitempty"`
	ServiceServers []string `yaml:"service_servers,omitempty" json:"service_servers,omitempty"`
	ServiceClients []string `yaml:"service_clients,omitempty" json:"service_clients,omitempty"`
	ActionServers  []string `yaml:"action_servers,omitempty" json:"action_servers,omitempty"`
	ActionClients  []string `yaml:"action_clients,omitempty" json:"action_clients,omitempty"`
	Nodes          []string `yaml:"nodes,omitempty" json:"nodes,omitempty"`
}

// Allowance is an immutable policy snapshot. A nil *Allowance allows
// everything.
type Allowance struct {
	mode           Mode
	publishers     *regexp.Regexp
	subscribers    *regexp.Regexp
	serviceServers *regexp.Regexp
	serviceClients *regexp.Regexp
	actionServers  *regexp.Regexp
	actionClients  *regexp.Regexp
	nodes          *regexp.Regexp
}

var _ core.Allowance = (*Allowance)(nil)

// New compiles a snapshot from the allow or the deny section. Passing both is
// an error; passing neither returns a nil snapshot, which allows everything.
func New(allow, deny *Rules) (*Allowance, error) {
	switch {
	case allow != nil && deny != nil:
		return nil, core.ErrConflictingPolicy
	case allow != nil:
		return compile(ModeAllow, allow)
	case deny != nil:
		return compile(ModeDeny, deny)
	default:
		return nil, nil
	}
}

func compile(mode Mode, r *Rules) (*Allowance, error) {
	a := &Allowance{mode: mode}
	var err error
	if a.publishers, err = union("publishers", r.Publishers); err != nil {
		return nil, err
	}
	if a.subscribers, err = union("subscribers", r.Subscribers); err != nil {
		return nil, err
	}
	if a.serviceServers, err = union("service_servers", r.ServiceServers); err != nil {
		return nil, err
	}
	if a.serviceClients, err = union("service_clients", r.ServiceClients); err != nil {
		return nil, err
	}
	if a.actionServers, err = union("action_servers", r.ActionServers); err != nil {
		return nil, err
	}
	if a.actionClients, err = union("action_clients", r.ActionClients); err != nil {
		return nil, err
	}
	if a.nodes, err = union("nodes", r.Nodes); err != nil {
		return nil, err
	}
	return a, nil
}

// union joins the expressions into "^(e1|e2|...)$". An empty list yields nil.
func union(field string, exprs []string) (*regexp.Regexp, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	for _, e := range exprs {
		if _, err := regexp.Compile(e); err != nil {
			return nil, fmt.Errorf("%w: %s: %q: %v", core.ErrInvalidPattern, field, e, err)
		}
	}
	re, err := regexp.Compile("^(" + strings.Join(exprs, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidPattern, field, err)
	}
	return re, nil
}

func (a *Allowance) Mode() Mode {
	if a == nil {
		return ModeDeny
	}
	return a.mode
}

// IsAllowByDefault reports whether names no rule mentions are allowed. This
// holds for a deny list.
func (a *Allowance) IsAllowByDefault() bool {
	return a == nil || a.mode == ModeDeny
}

func (a *Allowance) IsNodeAllowed(name string) bool       { return a.check(a.field(fieldNodes), name) }
func (a *Allowance) IsPublisherAllowed(name string) bool  { return a.check(a.field(fieldPublishers), name) }
func (a *Allowance) IsSubscriberAllowed(name string) bool { return a.check(a.field(fieldSubscribers), name) }
func (a *Allowance) IsServiceSrvAllowed(name string) bool { return a.check(a.field(fieldServiceServers), name) }
func (a *Allowance) IsServiceCliAllowed(name string) bool { return a.check(a.field(fieldServiceClients), name) }
func (a *Allowance) IsActionSrvAllowed(name string) bool  { return a.check(a.field(fieldActionServers), name) }
func (a *Allowance) IsActionCliAllowed(name string) bool  { return a.check(a.field(fieldActionClients), name) }

type field int

const (
	fieldNodes field = iota
	fieldPublishers
	fieldSubscribers
	fieldServiceServers
	fieldServiceClients
	fieldActionServers
	fieldActionClients
)

func (a *Allowance) field(f field) *regexp.Regexp {
	if a == nil {
		return nil
	}
	switch f {
	case fieldNodes:
		return a.nodes
	case fieldPublishers:
		return a.publishers
	case fieldSubscribers:
		return a.subscribers
	case fieldServiceServers:
		return a.serviceServers
	case fieldServiceClients:
		return a.serviceClients
	case fieldActionServers:
		return a.actionServers
	case fieldActionClients:
		return a.actionClients
	}
	return nil
}

// check applies one list. In allow mode a missing list allows nothing; in
// deny mode a missing list denies nothing.
func (a *Allowance) check(re *regexp.Regexp, name string) bool {
	if a == nil {
		return true
	}
	if a.mode == ModeAllow {
		return re != nil && re.MatchString(name)
	}
	return re == nil || !re.MatchString(name)
}
