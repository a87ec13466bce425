package ws

import (
	"encoding/json"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Hub fans tick messages out to connected browser clients.
type Hub struct {
	upgrader websocket.FastHTTPUpgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(*fasthttp.RequestCtx) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// HandleUpgrade upgrades the request and parks the connection in the
// hub until the client goes away.
func (h *Hub) HandleUpgrade(rctx *fasthttp.RequestCtx) {
	err := h.upgrader.Upgrade(rctx, func(conn *websocket.Conn) {
		id := uuid.NewString()
		h.add(id, conn)
		defer h.remove(id)

		h.logger.Info("websocket client connected", zap.String("client_id", id))
		h.send(conn, map[string]interface{}{"type": "connection", "status": "connected"})

		// Drain the client; inbound frames are not used yet.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("websocket client closed", zap.String("client_id", id), zap.Error(err))
				return
			}
		}
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

// Broadcast sends payload to every connected client, dropping clients
// whose writes fail.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": messageType,
		"data": data,
	})
	if err != nil {
		h.logger.Error("broadcast payload marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("dropping websocket client", zap.String("client_id", id), zap.Error(err))
			conn.Close()
			delete(h.clients, id)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = conn
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) send(conn *websocket.Conn, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Debug("websocket send failed", zap.Error(err))
	}
}
