package domain

import (
	"encoding/json"
	"time"
)

// EventType is the closed set of typed messages the broadcaster fans out.
type EventType string

const (
	EventNewSignal               EventType = "NEW_SIGNAL"
	EventPositionOpened           EventType = "POSITION_OPENED"
	EventPositionClosed           EventType = "POSITION_CLOSED"
	EventFlowUpdate               EventType = "FLOW_UPDATE"
	EventBiasUpdate               EventType = "BIAS_UPDATE"
	EventCircuitBreaker           EventType = "circuit_breaker"
	EventCircuitBreakerPendingReset EventType = "circuit_breaker_pending_reset"
	EventHealthAlert              EventType = "HEALTH_ALERT"
)

// Event is one message on the broadcast bus. Payload is opaque to the bus
// itself - only producers and typed subscribers on the client side need to
// know its shape, so it is carried as raw JSON rather than threading every
// event's concrete type through the broadcaster's API.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event, stamped with the given time.
func NewEvent(eventType EventType, ts time.Time, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Timestamp: ts, Payload: raw}, nil
}
