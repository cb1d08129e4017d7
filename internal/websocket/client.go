package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait is time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// pongWait is time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// pingPeriod is the interval for sending pings (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound control frames
	maxMessageSize = 4096

	// sendBufferSize is how many events may queue before a client counts as too slow
	sendBufferSize = 256

	// maxSubscriptions caps the allocation filter of one connection
	maxSubscriptions = 200
)

// Control frame actions a client may send
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ControlMessage narrows or widens the allocations a connection hears about.
// A connection with no subscriptions receives every event of its tenant.
type ControlMessage struct {
	Action        string   `json:"action"`
	AllocationIDs []string `json:"allocationIds"`
}

// Client represents a single WebSocket connection
type Client struct {
	id            string
	tenantID      int32
	conn          *websocket.Conn
	hub           *Hub
	send          chan []byte
	closed        bool
	subscriptions map[string]bool
	mu            sync.RWMutex
	closeOnce     sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, tenantID int32, hub *Hub) *Client {
	return &Client{
		id:            uuid.New().String(),
		tenantID:      tenantID,
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// TenantID returns the client's tenant ID
func (c *Client) TenantID() int32 {
	return c.tenantID
}

// Subscribe restricts delivery to the given allocations. Ids beyond the cap are dropped.
func (c *Client) Subscribe(ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if len(c.subscriptions) >= maxSubscriptions {
			return
		}
		c.subscriptions[id.String()] = true
	}
}

// Unsubscribe removes allocations from the filter. Removing the last one clears the
// filter, so the connection receives every event of its tenant again.
func (c *Client) Unsubscribe(ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.subscriptions, id.String())
	}
}

// Subscriptions returns the number of allocations in the filter
func (c *Client) Subscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions)
}

// Wants reports whether an event about allocationID should reach this client.
// Tenant-wide events (empty allocationID) always do.
func (c *Client) Wants(allocationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if allocationID == "" || len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[allocationID]
}

// Send queues a message to be sent to the client
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer is full, client is too slow
		return ErrClientClosed
	}
}

// Close closes the client connection.
// Safe to call multiple times from different goroutines.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		closeErr = c.conn.Close()
	})
	return closeErr
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// handleControl applies one inbound frame. Malformed frames and ids are ignored.
func (c *Client) handleControl(data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Str("client_id", c.id).Msg("Ignoring malformed WebSocket frame")
		return
	}

	ids := make([]uuid.UUID, 0, len(msg.AllocationIDs))
	for _, raw := range msg.AllocationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	switch msg.Action {
	case ActionSubscribe:
		c.Subscribe(ids...)
	case ActionUnsubscribe:
		c.Unsubscribe(ids...)
	default:
		log.Debug().Str("client_id", c.id).Str("action", msg.Action).Msg("Ignoring unknown WebSocket action")
		return
	}

	log.Debug().
		Str("client_id", c.id).
		Int32("tenant_id", c.tenantID).
		Str("action", msg.Action).
		Int("subscriptions", c.Subscriptions()).
		Msg("WebSocket subscriptions changed")
}

// ReadPump reads control frames until the connection drops.
// This should be run in a goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int32("tenant_id", c.tenantID).
					Msg("WebSocket unexpected close")
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleControl(data)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// This should be run in a goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, hub closed this client
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int32("tenant_id", c.tenantID).
					Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
