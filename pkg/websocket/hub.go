package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub fans accepted tracking events out to connected admin dashboards.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	onCount func(int)
}

type Message struct {
	Type       string      `json:"type"`
	EntityType string      `json:"entity_type,omitempty"`
	Timestamp  int64       `json:"timestamp"`
	Data       interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.sendToAll(message)
		}
	}
}

// Publish queues a message for broadcast. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Publish(messageType, entityType string, data interface{}) {
	msg := Message{
		Type:       messageType,
		EntityType: entityType,
		Timestamp:  getCurrentTimestamp(),
		Data:       data,
	}

	select {
	case h.broadcast <- msg:
	default:
		logrus.WithField("type", messageType).Warn("live feed queue full, dropping message")
	}
}

// join hands the client to Run. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// OnClientCount registers fn to be called with the client count after every
// register and unregister. Call it before Run.
func (h *Hub) OnClientCount(fn func(int)) {
	h.onCount = fn
}

func (h *Hub) reportCount() {
	if h.onCount != nil {
		h.onCount(h.ClientCount())
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()
	h.reportCount()

	logrus.WithField("remote", client.remote).Debug("live feed client registered")

	h.sendToClient(client, Message{
		Type:      "welcome",
		Timestamp: getCurrentTimestamp(),
		Data:      map[string]interface{}{"message": "Connected successfully"},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mutex.Unlock()

	if ok {
		logrus.WithField("remote", client.remote).Debug("live feed client unregistered")
		h.reportCount()
	}
}

func (h *Hub) sendToAll(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal live feed message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if !client.accepts(message) {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
