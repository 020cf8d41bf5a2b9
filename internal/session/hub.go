package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/models"
)

// ErrNoSession means the target connection is not (or no longer) registered.
var ErrNoSession = errors.New("no live session")

// Role distinguishes the two kinds of connected clients.
type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// conn wraps a websocket connection with a write lock; gorilla allows only
// one concurrent writer per connection.
type conn struct {
	sock   *websocket.Conn
	role   Role
	userID string
	mu     sync.Mutex
}

func (c *conn) send(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(Envelope{Type: eventType, Data: data})
}

// Hub owns every live session, keyed by connection ID, with a secondary
// index from passenger ID to connection so claim notifications can find the
// requester. It never holds its lock across a network write.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]*conn
	passengers map[string]string // passenger ID -> connection ID
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:      make(map[string]*conn),
		passengers: make(map[string]string),
		logger:     logger,
	}
}

// Add registers a connection under a fresh connection ID. A passenger that
// reconnects displaces its previous index entry; the old connection is
// closed so its read loop unwinds through Remove.
func (h *Hub) Add(connID string, role Role, userID string, sock *websocket.Conn) {
	h.mu.Lock()
	c := &conn{sock: sock, role: role, userID: userID}
	h.conns[connID] = c
	var displaced *conn
	if role == RolePassenger {
		if oldID, ok := h.passengers[userID]; ok && oldID != connID {
			displaced = h.conns[oldID]
		}
		h.passengers[userID] = connID
	}
	h.mu.Unlock()
	if displaced != nil {
		_ = displaced.sock.Close()
	}
	h.logger.Info("session_opened", "conn_id", connID, "role", role, "user_id", userID)
}

// Remove drops a connection and, for passengers, its index entry. Safe to
// call twice; the second call is a no-op.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		if c.role == RolePassenger && h.passengers[c.userID] == connID {
			delete(h.passengers, c.userID)
		}
	}
	h.mu.Unlock()
	if ok {
		_ = c.sock.Close()
		h.logger.Info("session_closed", "conn_id", connID, "role", c.role, "user_id", c.userID)
	}
}

// Send pushes an event to a specific connection.
func (h *Hub) Send(connID, eventType string, payload any) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return c.send(eventType, payload)
}

// Offer implements dispatch.Notifier: push a new_ride_request to a driver.
func (h *Hub) Offer(connID string, offer models.RideOffer) error {
	return h.Send(connID, EventNewRideRequest, offer)
}

// RideAccepted notifies the passenger's live connection, if any, that a
// driver claimed their request. A disconnected passenger just misses the
// push; the claim itself is already durable.
func (h *Hub) RideAccepted(passengerID string, msg models.RideAccepted) error {
	h.mu.RLock()
	connID, ok := h.passengers[passengerID]
	h.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return h.Send(connID, EventRideAccepted, msg)
}

// Len reports the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
