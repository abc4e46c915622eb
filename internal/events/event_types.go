package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventBookCreated    EventType = "book_created"
	EventBookUpdated    EventType = "book_updated"
	EventBookDeleted    EventType = "book_deleted"
	EventBookBorrowed   EventType = "book_borrowed"
	EventBookReturned   EventType = "book_returned"
)

// CatalogEvents change the statistics snapshot.
var CatalogEvents = []EventType{
	EventUserRegistered,
	EventBookCreated,
	EventBookUpdated,
	EventBookDeleted,
	EventBookBorrowed,
	EventBookReturned,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ActorID    string    `json:"actor_id,omitempty"`
	ResourceID int64     `json:"resource_id"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, actorID string, resourceID int64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
}

// BookChangedPayload payload for create, update and delete.
type BookChangedPayload struct {
	Title string `json:"title"`
}

// LoanPayload payload for borrow and return.
type LoanPayload struct {
	RecordID int64 `json:"record_id"`
	BookID   int64 `json:"book_id"`
	UserID   int64 `json:"user_id"`
}
