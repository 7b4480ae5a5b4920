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

package allowance

import (
	"sync/atomic"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
)

// Holder publishes the current snapshot to concurrent readers. Reloads
// replace the pointer; a reader keeps the snapshot it loaded.
type Holder struct {
	current atomic.Pointer[Allowance]
}

func NewHolder(initial *Allowance) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Snapshot returns the current policy, or an untyped nil when none is
// configured so that callers can compare against nil.
func (h *Holder) Snapshot() core.Allowance {
	a := h.current.Load()
	if a == nil {
		return nil
	}
	return a
}

func (h *Holder) Load() *Allowance {
	return h.current.Load()
}

// Swap installs a new snapshot and returns the previous one.
func (h *Holder) Swap(next *Allowance) *Allowance {
	return h.current.Swap(next)
}
