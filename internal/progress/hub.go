// Package progress streams search progress to connected clients over
// WebSocket, grounded on this codebase's connection hub — the same
// register/unregister/broadcast channel loop, keyed by optimization
// request id instead of user id.
package progress

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in a production deployment
	},
}

// Update is one progress message broadcast to a request's subscribers.
type Update struct {
	RequestID string  `json:"request_id"`
	Message   string  `json:"message"`
	Fraction  float64 `json:"fraction"` // 0.0..1.0
}

// Client represents one WebSocket connection subscribed to a single
// request's progress.
type Client struct {
	RequestID string
	Conn      *websocket.Conn
	Send      chan []byte
	hub       *Hub
}

// Hub maintains active WebSocket connections and routes progress updates
// to the clients subscribed to each request id.
type Hub struct {
	clients        map[*Client]bool
	requestClients map[string][]*Client
	register       chan *Client
	unregister     chan *Client
	logger         *logrus.Logger
	mutex          sync.RWMutex
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		requestClients: make(map[string][]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// Run drives client registration and unregistration. Call it once in its
// own goroutine at service startup.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.requestClients[client.RequestID] = append(h.requestClients[client.RequestID], client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"request_id":    client.RequestID,
				"total_clients": len(h.clients),
			}).Info("progress client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				peers := h.requestClients[client.RequestID]
				for i, c := range peers {
					if c == client {
						h.requestClients[client.RequestID] = append(peers[:i], peers[i+1:]...)
						break
					}
				}
				if len(h.requestClients[client.RequestID]) == 0 {
					delete(h.requestClients, client.RequestID)
				}
			}
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"request_id":    client.RequestID,
				"total_clients": len(h.clients),
			}).Info("progress client disconnected")
		}
	}
}

// HandleWebSocket upgrades a connection and subscribes it to one request's
// progress updates.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	requestID := c.Param("request_id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade websocket connection")
		return
	}

	client := &Client{
		RequestID: requestID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		hub:       h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Broadcast sends a progress update to every client subscribed to
// update.RequestID.
func (h *Hub) Broadcast(update Update) {
	h.mutex.RLock()
	clients := h.requestClients[update.RequestID]
	h.mutex.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(update)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal progress update")
		return
	}

	h.mutex.RLock()
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
	h.mutex.RUnlock()
}

// ConnectionCount returns the number of active progress subscribers.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Error("websocket read error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.logger.WithError(err).Error("failed to write websocket message")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
