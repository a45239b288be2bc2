package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/uatops/uat-router/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRoutingCompleted EventType = "routing_completed"
	EventRoutingFailed    EventType = "routing_failed"
	EventBatchCompleted   EventType = "batch_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	WorkItemID int       `json:"work_item_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, workItemID int, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkItemID: workItemID,
		Timestamp:  at,
		Payload:    payload,
	}
}

// RoutingCompletedPayload payload.
type RoutingCompletedPayload struct {
	Tag           *string          `json:"tag"`
	AssignedTo    *string          `json:"assigned_to"`
	Tier          domain.ParseTier `json:"tier"`
	RequestorTeam string           `json:"requestor_team"`
	ParseError    *string          `json:"parse_error,omitempty"`
	RawCompletion string           `json:"raw_completion"`
	Usage         domain.Usage     `json:"usage"`
	Batch         bool             `json:"batch"`
}

// RoutingFailedPayload payload.
type RoutingFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Batch   bool   `json:"batch"`
}

// BatchCompletedPayload payload.
type BatchCompletedPayload struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
