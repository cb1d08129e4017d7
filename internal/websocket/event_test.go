package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	allocationID := uuid.MustParse("6f1c3a5e-0d5c-4a43-9a5c-2c61d8d1a0b1")
	payload := map[string]interface{}{"sourceAmount": "9000.00"}

	before := time.Now()
	evt := NewEvent(EventTypeDistributed, EntityTypeAllocation, allocationID, payload)
	after := time.Now()

	assert.Equal(t, "allocation.distributed", evt.Type)
	assert.Equal(t, EntityTypeAllocation, evt.Entity)
	assert.Equal(t, "6f1c3a5e-0d5c-4a43-9a5c-2c61d8d1a0b1", evt.AllocationID)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestNewEvent_TenantWide(t *testing.T) {
	evt := NewEvent(EventTypeCreated, EntityTypeAllocation, uuid.Nil, nil)
	assert.Empty(t, evt.AllocationID)

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "allocationId")
}

func TestEvent_ToJSON(t *testing.T) {
	fixedTime := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	evt := Event{
		Type:         "allocation.locked",
		Entity:       EntityTypeAllocation,
		AllocationID: "0b7e4a2c-5d1f-4f8e-9c3a-7a1e2d3c4b5a",
		Payload:      map[string]interface{}{"name": "FY25 Key Accounts", "status": "locked"},
		Timestamp:    fixedTime,
	}

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "allocation.locked", decoded["type"])
	assert.Equal(t, "allocation", decoded["entity"])
	assert.Equal(t, "0b7e4a2c-5d1f-4f8e-9c3a-7a1e2d3c4b5a", decoded["allocationId"])
	assert.Equal(t, "2025-01-15T10:30:00Z", decoded["timestamp"])

	body, ok := decoded["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "FY25 Key Accounts", body["name"])
	assert.Equal(t, "locked", body["status"])
}

func TestAllocationEventConstructors(t *testing.T) {
	allocationID := uuid.New()

	tests := []struct {
		build  func(uuid.UUID, interface{}) Event
		want   string
		entity EntityType
	}{
		{AllocationCreated, "allocation.created", EntityTypeAllocation},
		{AllocationUpdated, "allocation.updated", EntityTypeAllocation},
		{AllocationDeleted, "allocation.deleted", EntityTypeAllocation},
		{AllocationDistributed, "allocation.distributed", EntityTypeAllocation},
		{AllocationLocked, "allocation.locked", EntityTypeAllocation},
		{AllocationUnlocked, "allocation.unlocked", EntityTypeAllocation},
		{AllocationUtilizationRefreshed, "allocation.refreshed", EntityTypeAllocation},
		{AllocationLineUpdated, "allocation_line.updated", EntityTypeAllocationLine},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			evt := tt.build(allocationID, "payload")
			assert.Equal(t, tt.want, evt.Type)
			assert.Equal(t, tt.entity, evt.Entity)
			assert.Equal(t, allocationID.String(), evt.AllocationID)
			assert.Equal(t, "payload", evt.Payload)
		})
	}
}
