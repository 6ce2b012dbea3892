package order

import "time"

// EventType names an order lifecycle event.
type EventType string

const (
	EventCreated EventType = "order.created"
	EventUpdated EventType = "order.updated"
)

// Event is published to the message broker after an order write.
type Event struct {
	EventID        string     `json:"eventId"`
	Type           EventType  `json:"type"`
	OrganizationID int64      `json:"organizationId"`
	OrderID        int64      `json:"orderId"`
	Code           string     `json:"code"`
	IsDraft        bool       `json:"isDraft"`
	LastStatusType StatusType `json:"lastStatusType,omitempty"`
	OccurredAt     time.Time  `json:"occurredAt"`
}
