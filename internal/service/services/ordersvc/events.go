package ordersvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/outbox"
	"github.com/google/uuid"
)

const defaultEventMaxRetries = 10

// publishEvent stores a lifecycle event in the outbox. Failures are logged only:
// the order is already written and events are informational.
func (s *OrderService) publishEvent(ctx context.Context, eventType order.EventType, o *order.Order) {
	if s.outboxRepo == nil {
		return
	}

	now := time.Now().UTC()
	event := order.Event{
		EventID:        uuid.NewString(),
		Type:           eventType,
		OrganizationID: o.OrganizationID,
		OrderID:        o.ID,
		Code:           o.Code,
		IsDraft:        o.IsDraft,
		LastStatusType: o.LastStatusType,
		OccurredAt:     now,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal order event", "order_code", o.Code, "error", err)

		return
	}

	err = s.outboxRepo.Insert(ctx, outbox.Message{
		EventID:      event.EventID,
		ExchangeName: s.eventExchange,
		RoutingKey:   string(eventType),
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   defaultEventMaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store order event",
			"event_type", eventType,
			"order_code", o.Code,
			"error", err,
		)
	}
}
