package websocket

// EventPublisher is how services announce allocation changes. Delivery is best
// effort and never fails the mutation that produced the event.
type EventPublisher interface {
	Publish(tenantID int32, event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Publish broadcasts the event to the tenant's subscribed connections
func (h *Hub) Publish(tenantID int32, event Event) {
	h.Broadcast(tenantID, event)
}

// NoOpPublisher drops every event. Services use it until a hub is set.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(int32, Event) {}
