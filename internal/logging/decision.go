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

package logging

import (
	"context"
	"log/slog"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/events"
)

// DecisionLogger writes one line per admission decision. Allowed events are
// logged at debug level, denied ones at info.
type DecisionLogger struct {
	logger *slog.Logger
}

func NewDecisionLogger(logger *slog.Logger) *DecisionLogger {
	return &DecisionLogger{logger: logger}
}

func (d *DecisionLogger) Log(decision events.Decision) {
	level := slog.LevelDebug
	if !decision.Allowed {
		level = slog.LevelInfo
	}
	d.logger.Log(context.Background(), level, "admission",
		"origin", decision.Origin,
		"event", decision.Event,
		"kind", decision.Kind,
		"allowed", decision.Allowed,
		"timestamp", decision.Timestamp,
	)
}
