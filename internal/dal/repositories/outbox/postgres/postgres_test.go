package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/corray333/backend-labs/tms/internal/dal/postgres"
	"github.com/corray333/backend-labs/tms/internal/service/models/outbox"
	"github.com/google/uuid"
)

func newRepository(t *testing.T) (context.Context, *OutboxRepository) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	client, err := postgres.NewClient(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := client.Pool().Exec(ctx, `DELETE FROM outbox`); err != nil {
		t.Fatalf("clear outbox: %v", err)
	}

	return ctx, NewOutboxRepository(client)
}

func pendingMessage(eventID string) outbox.Message {
	now := time.Now().Add(-time.Minute)

	return outbox.Message{
		EventID:      eventID,
		ExchangeName: "tms.orders",
		RoutingKey:   "order.created",
		Payload:      []byte(`{"code":"ORD1"}`),
		ContentType:  "application/json",
		MaxRetries:   3,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
}

func TestInsertIgnoresDuplicateEvent(t *testing.T) {
	ctx, repo := newRepository(t)

	eventID := uuid.NewString()
	if err := repo.Insert(ctx, pendingMessage(eventID)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := pendingMessage(eventID)
	dup.RoutingKey = "order.updated"
	if err := repo.Insert(ctx, dup); err != nil {
		t.Fatalf("duplicate insert should be ignored, got: %v", err)
	}

	msgs, err := repo.GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(msgs))
	}
	if msgs[0].EventID != eventID {
		t.Errorf("event id = %q, want %q", msgs[0].EventID, eventID)
	}
	if msgs[0].RoutingKey != "order.created" {
		t.Errorf("first insert must win, got routing key %q", msgs[0].RoutingKey)
	}
	if string(msgs[0].Payload) != `{"code":"ORD1"}` {
		t.Errorf("payload = %s", msgs[0].Payload)
	}
}

func TestUpdateRetryAndDelete(t *testing.T) {
	ctx, repo := newRepository(t)

	if err := repo.Insert(ctx, pendingMessage(uuid.NewString())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	msgs, err := repo.GetPendingMessages(ctx, 10)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("get pending: %d messages, err %v", len(msgs), err)
	}
	id := msgs[0].ID

	if err := repo.UpdateRetry(ctx, id, 1, "broker unavailable", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("update retry: %v", err)
	}
	msgs, err = repo.GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("message scheduled in the future must not be pending, got %d", len(msgs))
	}

	if err := repo.UpdateRetry(ctx, id, 3, "broker unavailable", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("update retry: %v", err)
	}
	msgs, err = repo.GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("message out of retries must not be pending, got %d", len(msgs))
	}

	if err := repo.UpdateRetry(ctx, id, 2, "broker unavailable", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("update retry: %v", err)
	}
	msgs, err = repo.GetPendingMessages(ctx, 10)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("get pending: %d messages, err %v", len(msgs), err)
	}
	if msgs[0].RetryCount != 2 || msgs[0].LastError != "broker unavailable" {
		t.Errorf("retry state not stored: %+v", msgs[0])
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs, err = repo.GetPendingMessages(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("deleted message still pending")
	}
}
