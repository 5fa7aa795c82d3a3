/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package dashboard pushes live server counters to connected browsers
// over a websocket, a push feed alongside the pull-based /metrics
// endpoint internal/metrics exposes.
package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/launix-de/rkv/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stats is one sampled snapshot pushed to every connected client.
type Stats struct {
	Timestamp        int64 `json:"ts"`
	Keys             int   `json:"keys"`
	ConnectedClients int64 `json:"connected_clients"`
	ConnectedReplicas int  `json:"connected_replicas"`
	ReplicationOffset int64 `json:"replication_offset"`
}

// Sampler produces the values a Stats snapshot needs. internal/server
// implements this over its own connection/replica bookkeeping; the
// dashboard itself owns no state about the rest of the process.
type Sampler interface {
	ConnectedClients() int64
	ConnectedReplicas() int
	ReplicationOffset() int64
}

// Hub upgrades incoming HTTP requests to websockets and broadcasts a
// Stats sample to every connected client at a fixed interval, the same
// upgrade-then-push-loop shape memcp's scm/network.go "websocket"
// builtin uses, generalized from a per-call onMessage/onClose pair
// (memcp's feed is client-driven RPC) to a single server-driven
// broadcast (the dashboard has nothing a client needs to say back).
type Hub struct {
	db      *store.Db
	sampler Sampler
	period  time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	stop chan struct{}
}

// NewHub starts the broadcast loop. Call Close to stop it.
func NewHub(db *store.Db, sampler Sampler, period time.Duration) *Hub {
	if period <= 0 {
		period = time.Second
	}
	h := &Hub{
		db:      db,
		sampler: sampler,
		period:  period,
		clients: make(map[*websocket.Conn]struct{}),
		stop:    make(chan struct{}),
	}
	go h.broadcastLoop()
	return h
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection for broadcast. The connection is unregistered once its read
// loop sees a close frame or any read error, mirroring memcp's websocket
// builtin's own read-loop-until-error shape.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("dashboard: websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) broadcastLoop() {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.broadcast(h.sample())
		}
	}
}

func (h *Hub) sample() Stats {
	return Stats{
		Timestamp:         time.Now().UnixMilli(),
		Keys:              h.db.Len(),
		ConnectedClients:  h.sampler.ConnectedClients(),
		ConnectedReplicas: h.sampler.ConnectedReplicas(),
		ReplicationOffset: h.sampler.ReplicationOffset(),
	}
}

func (h *Hub) broadcast(stats Stats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		zap.L().Error("dashboard: marshal stats failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.unregister(c)
		}
	}
}

// Close stops the broadcast loop and disconnects every client.
func (h *Hub) Close() {
	close(h.stop)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
