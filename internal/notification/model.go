package notification

import "time"

// Notification is an inbox entry for one member
type Notification struct {
	ID                int64     `json:"id"`
	RecipientID       int64     `json:"recipient_id"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"` // e.g., "SETTLEMENT", "EXPENSE"
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EntityType names what a notification points at
type EntityType string

const (
	EntitySettlement EntityType = "SETTLEMENT"
	EntityExpense    EntityType = "EXPENSE"
)
