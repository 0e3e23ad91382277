package models

import "github.com/google/uuid"

type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// EventPayload carries the event fields for create and update operations.
// Updates are partial: only ID is mandatory, absent fields are left untouched.
type EventPayload struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Start       *EventDateTime `json:"start,omitempty"`
	End         *EventDateTime `json:"end,omitempty"`
}

// SyncOperation describes a single calendar mutation. RetryCount is advanced
// only by the consumer when it schedules a redelivery, never decremented.
type SyncOperation struct {
	Type       OperationType `json:"type"`
	EventID    string        `json:"event_id,omitempty"`
	Payload    *EventPayload `json:"payload,omitempty"`
	RetryCount int           `json:"retry_count"`
}

// SyncMessage is the queue envelope. CorrelationID travels in the body so it
// survives broker redelivery, and stays stable across retries of the same
// logical operation.
type SyncMessage struct {
	UserID        string        `json:"user_id"`
	Operation     SyncOperation `json:"operation"`
	CorrelationID string        `json:"correlation_id"`
}

// NewSyncMessage mints the envelope for a fresh operation.
func NewSyncMessage(userID string, op SyncOperation) SyncMessage {
	return SyncMessage{
		UserID:        userID,
		Operation:     op,
		CorrelationID: uuid.NewString(),
	}
}

// WithRetry returns the copy republished on the retry path.
func (m SyncMessage) WithRetry() SyncMessage {
	m.Operation.RetryCount++
	return m
}

// SyncResult is the terminal outcome of a SyncMessage, produced exactly once
// per message: success, non-retryable failure, or retry exhaustion.
type SyncResult struct {
	Success   bool           `json:"success"`
	Event     *CalendarEvent `json:"event,omitempty"`
	Error     string         `json:"error,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}
