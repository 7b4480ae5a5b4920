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

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
)

// Watcher reloads the allow/deny policy when the config file changes. Only
// the policy is hot reloaded; everything else needs a restart.
type Watcher struct {
	path    string
	holder  *allowance.Holder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewWatcher(path string, holder *allowance.Holder, m *metrics.Metrics, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:    filepath.Clean(path),
		holder:  holder,
		metrics: m,
		logger:  logger,
	}
}

// Start watches the directory holding the config file, so that editors
// replacing the file by rename are seen too. It returns once the watch is in
// place.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Info("config change detected", "path", w.path, "op", event.Op.String())
			if err := w.Reload(); err != nil {
				w.logger.Error("config reload failed", "path", w.path, "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Reload loads the config file and installs its policy. On failure the
// current policy stays in place.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.metrics.ObserveReload(false)
		return err
	}
	next, err := cfg.Allowance()
	if err != nil {
		w.metrics.ObserveReload(false)
		return err
	}
	prev := w.holder.Swap(next)
	w.metrics.ObserveReload(true)
	w.logger.Info("policy reloaded",
		"previous", describe(prev),
		"current", describe(next),
	)
	return nil
}

func describe(a *allowance.Allowance) string {
	if a == nil {
		return "none"
	}
	return a.Mode().String()
}
