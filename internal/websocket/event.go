package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the action half of an event name
type EventType string

const (
	EventTypeCreated     EventType = "created"
	EventTypeUpdated     EventType = "updated"
	EventTypeDeleted     EventType = "deleted"
	EventTypeDistributed EventType = "distributed"
	EventTypeLocked      EventType = "locked"
	EventTypeUnlocked    EventType = "unlocked"
	EventTypeRefreshed   EventType = "refreshed"
)

// EntityType is the subject half of an event name
type EntityType string

const (
	EntityTypeAllocation     EntityType = "allocation"
	EntityTypeAllocationLine EntityType = "allocation_line"
)

// Event is the message pushed to clients.
// Format: { type, entity, allocationId, payload, timestamp }
type Event struct {
	Type         string      `json:"type"` // e.g. "allocation.distributed"
	Entity       EntityType  `json:"entity"`
	AllocationID string      `json:"allocationId,omitempty"`
	Payload      interface{} `json:"payload"`
	Timestamp    time.Time   `json:"timestamp"`
}

// NewEvent creates an event about one allocation. A nil allocationID makes a
// tenant-wide event that reaches every client regardless of subscriptions.
func NewEvent(eventType EventType, entityType EntityType, allocationID uuid.UUID, payload interface{}) Event {
	evt := Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if allocationID != uuid.Nil {
		evt.AllocationID = allocationID.String()
	}
	return evt
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func AllocationCreated(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeAllocation, allocationID, payload)
}

func AllocationUpdated(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAllocation, allocationID, payload)
}

func AllocationDeleted(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeAllocation, allocationID, payload)
}

// AllocationDistributed creates an allocation.distributed event
func AllocationDistributed(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeDistributed, EntityTypeAllocation, allocationID, payload)
}

func AllocationLocked(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeLocked, EntityTypeAllocation, allocationID, payload)
}

func AllocationUnlocked(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeUnlocked, EntityTypeAllocation, allocationID, payload)
}

// AllocationUtilizationRefreshed creates an allocation.refreshed event
func AllocationUtilizationRefreshed(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeRefreshed, EntityTypeAllocation, allocationID, payload)
}

// AllocationLineUpdated creates an allocation_line.updated event
func AllocationLineUpdated(allocationID uuid.UUID, payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeAllocationLine, allocationID, payload)
}
