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

package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
)

// Feed streams admission decisions as server-sent events.
type Feed struct {
	name   string
	port   int
	hub    *feed.Hub
	server *http.Server
	logger *slog.Logger
}

var _ plugins.Feed = (*Feed)(nil)

func New(name string, port int, logger *slog.Logger) *Feed {
	return &Feed{name: name, port: port, logger: logger}
}

func (f *Feed) Name() string { return f.name }
func (f *Feed) Type() string { return "sse" }

func (f *Feed) Start(ctx context.Context, hub *feed.Hub) error {
	f.hub = hub
	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleSSE)

	f.server = &http.Server{Addr: fmt.Sprintf(":%d", f.port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.server.Shutdown(shutdownCtx)
	}()

	f.logger.Info("sse feed starting", "name", f.name, "port", f.port)
	if err := f.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (f *Feed) Stop(ctx context.Context) error {
	if f.server != nil {
		return f.server.Shutdown(ctx)
	}
	return nil
}

func (f *Feed) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	clientID := uuid.New().String()
	decisions, unsubscribe := f.hub.Subscribe(clientID)
	defer func() {
		unsubscribe()
		f.logger.Info("sse client disconnected", "client_id", clientID)
	}()

	f.logger.Info("sse client connected", "client_id", clientID)

	var seq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case d, ok := <-decisions:
			if !ok {
				return
			}
			data, err := json.Marshal(d)
			if err != nil {
				f.logger.Error("marshal decision failed", "error", err)
				continue
			}
			seq++
			fmt.Fprintf(w, "id: %d\nevent: decision\ndata: %s\n\n", seq, data)
			flusher.Flush()
		}
	}
}
