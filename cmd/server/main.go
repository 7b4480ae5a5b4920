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

package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/bridge"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/routing"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/allowance"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/keyexpr"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/amqp1"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/kafka"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/mqtt5"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/rabbitmq"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/redis"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/sse"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/static"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins/ws"
)

func main() {
	var configPath, logLevel string
	pflag.StringVarP(&configPath, "config", "c", "", "path to the bridge config file (default $CONFIG_PATH or /etc/ros2dds-bridge/config.yaml)")
	pflag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pflag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q: %v\n", logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "/etc/ros2dds-bridge/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	policy, err := cfg.Allowance()
	if err != nil {
		logger.Error("failed to compile policy", "error", err)
		os.Exit(1)
	}
	holder := allowance.NewHolder(policy)

	logger = logger.With("bridge_id", cfg.ID)
	m := metrics.New()
	hub := feed.NewHub(64, logger.With("component", "feed"))
	registry := plugins.NewRegistry(logger)

	registerTransports(cfg, registry, logger)
	registerDiscoverySources(cfg, registry, logger)
	registerFeeds(cfg, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n := registry.ConnectTransports(ctx); n == 0 && len(cfg.Transports) > 0 {
		logger.Error("no transport could connect")
		os.Exit(1)
	}

	mgr := bridge.NewManager(bridge.Options{
		ID:         cfg.ID,
		Converter:  keyexpr.NewConverter(cfg.Namespace),
		Policy:     holder,
		Routes:     routing.NewTable(),
		Transports: registry.Transports(),
		Logger:     logger.With("component", "bridge"),
		Decisions:  logging.NewDecisionLogger(logger.With("component", "admission")),
		Metrics:    m,
		Feed:       hub,
	})

	watcher := config.NewWatcher(configPath, holder, m, logger.With("component", "config"))
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Port, logger.With("component", "metrics")); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	registry.StartFeeds(ctx, hub)
	registry.StartTransports(ctx, mgr)
	registry.StartDiscoverySources(ctx, mgr)

	logger.Info("ros2dds bridge started",
		"config", configPath,
		"namespace", cfg.Namespace,
		"nodename", cfg.Nodename,
		"policy", describePolicy(policy),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down ros2dds bridge")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	registry.StopSources(shutdownCtx)
	if err := mgr.Close(shutdownCtx); err != nil {
		logger.Warn("retiring routes failed", "error", err)
	}
	cancel()
	hub.Close()
	registry.StopAll(shutdownCtx)

	logger.Info("ros2dds bridge stopped")
}

func describePolicy(a *allowance.Allowance) string {
	if a == nil {
		return "none"
	}
	return a.Mode().String()
}

func registerTransports(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, t := range cfg.Transports {
		tl := logger.With("component", "transport", "transport", t.Name)
		switch t.Type {
		case "mqtt5":
			reg.RegisterTransport(mqtt5.New(t.Name, t.Config["broker_url"], cfg.ID, tl))
		case "kafka":
			brokers := strings.Split(t.Config["brokers"], ",")
			reg.RegisterTransport(kafka.New(
				t.Name, brokers,
				t.Config["topic"],
				t.Config["group_id"],
				cfg.ID,
				tl,
			))
		case "rabbitmq":
			reg.RegisterTransport(rabbitmq.New(t.Name, t.Config["url"], t.Config["exchange"], cfg.ID, tl))
		case "amqp1":
			reg.RegisterTransport(amqp1.New(t.Name, t.Config["url"], t.Config["address"], cfg.ID, tl))
		case "redis":
			db, err := strconv.Atoi(cmp.Or(t.Config["db"], "0"))
			if err != nil {
				logger.Warn("invalid redis db, using 0", "name", t.Name, "db", t.Config["db"])
			}
			reg.RegisterTransport(redis.New(t.Name, redis.Config{
				Addr:     t.Config["addr"],
				Password: t.Config["password"],
				DB:       db,
				Key:      t.Config["key"],
			}, cfg.ID, tl))
		default:
			logger.Warn("unknown transport type", "name", t.Name, "type", t.Type)
		}
	}
}

func registerDiscoverySources(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, d := range cfg.Discovery {
		switch d.Type {
		case "static", "":
			decls := make([]static.Declaration, 0, len(d.Interfaces))
			for _, ic := range d.Interfaces {
				iface, err := ic.Interface()
				if err != nil {
					logger.Warn("skipping interface", "source", d.Name, "name", ic.Name, "error", err)
					continue
				}
				decls = append(decls, static.Declaration{Node: ic.Node, Iface: iface})
			}
			reg.RegisterDiscoverySource(static.New(d.Name, decls, logger.With("component", "discovery")))
		default:
			logger.Warn("unknown discovery type", "name", d.Name, "type", d.Type)
		}
	}
}

func registerFeeds(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, f := range cfg.Feeds {
		switch f.Type {
		case "websocket":
			reg.RegisterFeed(ws.New(f.Name, f.Port, logger.With("component", "feed")))
		case "sse":
			reg.RegisterFeed(sse.New(f.Name, f.Port, logger.With("component", "feed")))
		default:
			logger.Warn("unknown feed type", "name", f.Name, "type", f.Type)
		}
	}
}
