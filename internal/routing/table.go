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

package routing

import (
	"sort"
	"sync"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

// Key identifies a route: the ROS2-side role the bridge plays and the key
// expression on the overlay.
type Key struct {
	Kind    core.Kind
	KeyExpr string
}

func KeyOf(r *core.Route) Key {
	return Key{Kind: r.Kind, KeyExpr: r.KeyExpr}
}

type Table struct {
	routes sync.Map
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Add(route *core.Route) {
	t.routes.Store(KeyOf(route), route)
}

func (t *Table) Remove(key Key) {
	t.routes.Delete(key)
}

func (t *Table) Lookup(key Key) (*core.Route, bool) {
	v, ok := t.routes.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*core.Route), true
}

// Range calls fn for every route until fn returns false.
func (t *Table) Range(fn func(*core.Route) bool) {
	t.routes.Range(func(_, v any) bool {
		return fn(v.(*core.Route))
	})
}

// Count returns the number of routes of the given kind.
func (t *Table) Count(kind core.Kind) int {
	n := 0
	t.Range(func(r *core.Route) bool {
		if r.Kind == kind {
			n++
		}
		return true
	})
	return n
}

// Routes returns the routes sorted by kind then key expression.
func (t *Table) Routes() []*core.Route {
	var out []*core.Route
	t.Range(func(r *core.Route) bool {
		out = append(out, r)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].KeyExpr < out[j].KeyExpr
	})
	return out
}

func (t *Table) ReplaceAll(routes []*core.Route) {
	t.routes.Range(func(key, _ any) bool {
		t.routes.Delete(key)
		return true
	})
	for _, r := range routes {
		t.Add(r)
	}
}
