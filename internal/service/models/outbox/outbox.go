package outbox

import (
	"time"
)

// Message is an order lifecycle event waiting to be relayed to RabbitMQ.
type Message struct {
	ID           int64
	EventID      string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
