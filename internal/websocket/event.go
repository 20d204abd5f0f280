package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated   EventType = "created"
	EventTypePaid      EventType = "paid"
	EventTypeCompleted EventType = "completed"
	EventTypeCancelled EventType = "cancelled"
	EventTypeDefaulted EventType = "defaulted"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypePlan        EntityType = "plan"
	EntityTypeInstallment EntityType = "installment"
)

// Event represents a message pushed to connected dashboard clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // Combined type e.g. "plan.created"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PlanCreated creates a plan.created event
func PlanCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypePlan, payload)
}

// PlanCompleted creates a plan.completed event
func PlanCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypePlan, payload)
}

// PlanCancelled creates a plan.cancelled event
func PlanCancelled(payload interface{}) Event {
	return NewEvent(EventTypeCancelled, EntityTypePlan, payload)
}

// PlanDefaulted creates a plan.defaulted event
func PlanDefaulted(payload interface{}) Event {
	return NewEvent(EventTypeDefaulted, EntityTypePlan, payload)
}

// InstallmentPaid creates an installment.paid event
func InstallmentPaid(payload interface{}) Event {
	return NewEvent(EventTypePaid, EntityTypeInstallment, payload)
}
