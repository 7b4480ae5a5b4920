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

package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wso2/api-platform/gateway/ros2dds-bridge/internal/feed"
	"github.com/wso2/api-platform/gateway/ros2dds-bridge/pkg/plugins"
)

// Feed streams admission decisions to websocket clients as JSON text
// frames. Clients only listen; anything they send is discarded.
type Feed struct {
	name     string
	port     int
	upgrader websocket.Upgrader
	hub      *feed.Hub
	server   *http.Server
	logger   *slog.Logger
	conns    sync.Map
}

var _ plugins.Feed = (*Feed)(nil)

func New(name string, port int, logger *slog.Logger) *Feed {
	return &Feed{
		name: name,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (f *Feed) Name() string { return f.name }
func (f *Feed) Type() string { return "websocket" }

func (f *Feed) Start(ctx context.Context, hub *feed.Hub) error {
	f.hub = hub

	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleConnection)

	f.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", f.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.server.Shutdown(shutdownCtx)
	}()

	f.logger.Info("websocket feed starting", "name", f.name, "port", f.port)
	if err := f.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (f *Feed) Stop(ctx context.Context) error {
	f.conns.Range(func(_, val any) bool {
		val.(*websocket.Conn).Close()
		return true
	})
	if f.server != nil {
		return f.server.Shutdown(ctx)
	}
	return nil
}

func (f *Feed) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("ws upgrade failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	decisions, unsubscribe := f.hub.Subscribe(clientID)
	f.conns.Store(clientID, conn)

	defer func() {
		unsubscribe()
		conn.Close()
		f.conns.Delete(clientID)
		f.logger.Info("ws client disconnected", "client_id", clientID)
	}()

	f.logger.Info("ws client connected", "client_id", clientID)

	go f.readLoop(conn, clientID, unsubscribe)

	for d := range decisions {
		if err := conn.WriteJSON(d); err != nil {
			f.logger.Error("ws write failed", "client_id", clientID, "error", err)
			return
		}
	}
}

// readLoop services control frames and ends the subscription once the
// client goes away.
func (f *Feed) readLoop(conn *websocket.Conn, clientID string, unsubscribe func()) {
	defer unsubscribe()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Error("ws read error", "client_id", clientID, "error", err)
			}
			return
		}
	}
}
