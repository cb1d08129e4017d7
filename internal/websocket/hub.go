package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface is what the hub needs from a connection
type ClientInterface interface {
	ID() string
	TenantID() int32
	Send(data []byte) error
	Close() error
	// Wants reports whether an event about allocationID should be delivered
	Wants(allocationID string) bool
}

// Hub fans allocation events out to the connections of one tenant.
// It is safe for concurrent use.
type Hub struct {
	// tenants maps tenant ID to client ID to client
	tenants map[int32]map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		tenants: make(map[int32]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its tenant
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.TenantID()
	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[string]ClientInterface)
	}
	h.tenants[tenantID][client.ID()] = client

	log.Debug().
		Int32("tenant_id", tenantID).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.TenantID()
	clients, ok := h.tenants[tenantID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}

	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.tenants, tenantID)
	}

	log.Debug().
		Int32("tenant_id", tenantID).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to the clients of a tenant that want it. Sends are
// asynchronous; a slow or closed client never blocks the caller.
func (h *Hub) Broadcast(tenantID int32, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Int32("tenant_id", tenantID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	recipients := h.recipients(tenantID, event.AllocationID)
	if len(recipients) == 0 {
		return
	}

	for _, client := range recipients {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Int32("tenant_id", tenantID).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Int32("tenant_id", tenantID).
		Str("event_type", event.Type).
		Int("client_count", len(recipients)).
		Msg("Broadcast event")
}

func (h *Hub) recipients(tenantID int32, allocationID string) []ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.tenants[tenantID]
	out := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		if client.Wants(allocationID) {
			out = append(out, client)
		}
	}
	return out
}

// ClientCount returns the number of clients connected for a tenant
func (h *Hub) ClientCount(tenantID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}

// TotalClientCount returns the number of connected clients across all tenants
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.tenants {
		total += len(clients)
	}
	return total
}

// Shutdown closes every connection and empties the hub
func (h *Hub) Shutdown() {
	h.mu.Lock()
	tenants := h.tenants
	h.tenants = make(map[int32]map[string]ClientInterface)
	h.mu.Unlock()

	closed := 0
	for _, clients := range tenants {
		for _, client := range clients {
			if err := client.Close(); err != nil {
				log.Debug().Err(err).Str("client_id", client.ID()).Msg("Close on shutdown failed")
			}
			closed++
		}
	}
	log.Info().Int("client_count", closed).Msg("WebSocket hub shut down")
}
