package websockets

import (
	"surveys/internal/events"
	"surveys/internal/logger"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Conn is the part of *websocket.Conn the manager needs.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type client struct {
	id   string
	conn Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Manager pushes survey template change events to connected browsers.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     logger.Logger
}

func New(eventBus *events.EventBus) *Manager {
	m := &Manager{
		clients: map[string]*client{},
		log:     logger.New("websockets"),
	}

	if eventBus != nil {
		eventBus.Subscribe(events.TemplateChannel, func(e events.Event) {
			m.Broadcast(e)
		})
	}

	return m
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	m.Serve(c)
}

// Serve registers the connection and blocks until the peer goes away.
func (m *Manager) Serve(conn Conn) {
	log := m.log.Function("Serve")

	c := &client{id: uuid.NewString(), conn: conn}
	m.mu.Lock()
	m.clients[c.id] = c
	m.mu.Unlock()
	log.Info("Client connected", "clientID", c.id)

	defer m.remove(c.id)

	hello := events.Event{
		ID:        uuid.NewString(),
		Type:      "connected",
		Data:      map[string]any{"clientId": c.id},
		Timestamp: time.Now().UTC(),
	}
	if err := c.send(hello); err != nil {
		log.Warn("failed to greet client", "clientID", c.id, "error", err)
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug("Client read ended", "clientID", c.id, "error", err)
			return
		}
	}
}

func (m *Manager) Broadcast(v any) {
	m.mu.RLock()
	targets := make([]*client, 0, len(m.clients))
	for _, c := range m.clients {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(v); err != nil {
			m.log.Function("Broadcast").Warn("dropping client after failed send", "clientID", c.id, "error", err)
			m.remove(c.id)
		}
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	c, ok := m.clients[id]
	delete(m.clients, id)
	m.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}
