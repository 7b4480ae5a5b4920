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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/keyexpr"
)

const DefaultNodename = "zenoh_bridge_ros2dds"

var (
	knownTransports = map[string]bool{"mqtt5": true, "kafka": true, "rabbitmq": true, "amqp1": true, "redis": true}
	knownFeeds      = map[string]bool{"websocket": true, "sse": true}
	knownDiscovery  = map[string]bool{"static": true, "": true}
)

type Config struct {
	ID         string            `yaml:"id" json:"id"`
	Namespace  string            `yaml:"namespace" json:"namespace"`
	Nodename   string            `yaml:"nodename" json:"nodename"`
	Allow      *allowance.Rules  `yaml:"allow" json:"allow"`
	Deny       *allowance.Rules  `yaml:"deny" json:"deny"`
	Transports []TransportConfig `yaml:"transports" json:"transports"`
	Discovery  []DiscoveryConfig `yaml:"discovery" json:"discovery"`
	Feeds      []FeedConfig      `yaml:"feeds" json:"feeds"`
	Metrics    MetricsConfig     `yaml:"metrics" json:"metrics"`
}

type TransportConfig struct {
	Name   string            `yaml:"name" json:"name"`
	Type   string            `yaml:"type" json:"type"`
	Config map[string]string `yaml:"config" json:"config"`
}

type DiscoveryConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Type       string            `yaml:"type" json:"type"`
	Interfaces []InterfaceConfig `yaml:"interfaces" json:"interfaces"`
}

// InterfaceConfig declares one ROS2 interface for the static discovery
// source.
type InterfaceConfig struct {
	Node string `yaml:"node" json:"node"`
	Kind string `yaml:"kind" json:"kind"`
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

type FeedConfig struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
	Port int    `yaml:"port" json:"port"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// Load reads a YAML (.yaml, .yml) or JSON5 (.json, .json5, .jsonc) config
// file, fills in defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes config data in the format named by ext.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".json", ".json5", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	if c.Namespace == "" {
		c.Namespace = keyexpr.RootNamespace
	}
	if c.Nodename == "" {
		c.Nodename = DefaultNodename
	}
	if c.Metrics.Enabled && c.Metrics.Port == 0 {
		c.Metrics.Port = 9464
	}
}

func (c *Config) Validate() error {
	if err := keyexpr.ValidateNamespace(c.Namespace); err != nil {
		return err
	}
	if strings.Contains(c.ID, "/") {
		return fmt.Errorf("%w: id %q must be a single chunk", core.ErrInvalidKeyExpr, c.ID)
	}
	if err := keyexpr.Validate(c.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if _, err := c.Allowance(); err != nil {
		return err
	}
	for _, t := range c.Transports {
		if !knownTransports[t.Type] {
			return fmt.Errorf("%w: name=%s type=%s", core.ErrUnknownTransport, t.Name, t.Type)
		}
	}
	for _, f := range c.Feeds {
		if !knownFeeds[f.Type] {
			return fmt.Errorf("%w: name=%s type=%s", core.ErrUnknownFeed, f.Name, f.Type)
		}
	}
	for _, d := range c.Discovery {
		if !knownDiscovery[d.Type] {
			return fmt.Errorf("%w: name=%s type=%s", core.ErrUnknownDiscovery, d.Name, d.Type)
		}
		for _, ic := range d.Interfaces {
			if _, err := ic.Interface(); err != nil {
				return fmt.Errorf("discovery %s: %w", d.Name, err)
			}
		}
	}
	return nil
}

// Allowance compiles the allow or deny section. It returns nil when neither
// is configured.
func (c *Config) Allowance() (*allowance.Allowance, error) {
	return allowance.New(c.Allow, c.Deny)
}

func (ic InterfaceConfig) Interface() (core.Interface, error) {
	kind, err := core.ParseKind(ic.Kind)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ic.Name, "/") {
		return nil, fmt.Errorf("%w: interface name %q is not absolute", core.ErrInvalidKeyExpr, ic.Name)
	}
	return core.NewInterface(kind, ic.Name, ic.Type)
}
