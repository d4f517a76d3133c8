package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	RolePresenter   = "presenter"
	RoleParticipant = "participant"
)

type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Conn is the slice of *websocket.Conn the hub needs; tests use fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live transport connection plus the context fixed at
// handshake time: which session it belongs to, its role, and (for
// participants) a stable identity that survives reconnects.
type Client struct {
	SessionCode     string
	Role            string
	ParticipantID   string
	ParticipantName string

	conn Conn
	mu   sync.Mutex
}

func NewClient(sessionCode, role, participantID, participantName string, conn Conn) *Client {
	return &Client{
		SessionCode:     sessionCode,
		Role:            role,
		ParticipantID:   participantID,
		ParticipantName: participantName,
		conn:            conn,
	}
}

func (c *Client) Send(msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

// write serializes writes per connection; gorilla allows one concurrent writer.
func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) Close() {
	c.conn.Close()
}

// Hub tracks live connections per session code, independent of the
// persisted session state. Delivery is best-effort: a connection that
// fails a write is closed and dropped.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	code := client.SessionCode
	if h.sessions[code] == nil {
		h.sessions[code] = make(map[*Client]bool)
	}
	h.sessions[code][client] = true
	log.Printf("ws: %s connected to session %s (total: %d)", client.Role, code, len(h.sessions[code]))
}

// Unregister is idempotent; removing an already-removed client is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	code := client.SessionCode
	conns, ok := h.sessions[code]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	client.Close()
	if len(conns) == 0 {
		delete(h.sessions, code)
	}
	log.Printf("ws: %s disconnected from session %s", client.Role, code)
}

// Broadcast delivers msg to every connection in the session, optionally
// skipping the sender. Pass nil exclude to reach everyone.
func (h *Hub) Broadcast(code string, msg Envelope, exclude *Client) {
	h.send(code, msg, func(c *Client) bool { return c != exclude })
}

// BroadcastToPresenters delivers msg only to presenter-role connections.
// There can be more than one, e.g. a presenter reconnecting before the old
// tab has closed.
func (h *Hub) BroadcastToPresenters(code string, msg Envelope) {
	h.send(code, msg, func(c *Client) bool { return c.Role == RolePresenter })
}

func (h *Hub) send(code string, msg Envelope, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.sessions[code]))
	for c := range h.sessions[code] {
		if match(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var dead []*Client
	for _, c := range targets {
		if err := c.write(data); err != nil {
			log.Printf("ws: write error on session %s: %v", code, err)
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unregister(c)
	}
}

// ConnectionCount reports live connections for a session.
func (h *Hub) ConnectionCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[code])
}
