package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/corray333/backend-labs/tms/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// RoutingKey is the routing key dispatch requests are published with.
const RoutingKey = "dispatch.requested"

type service interface {
	Recommend(ctx context.Context, organizationID int64, code string) (dispatch.Result, error)
}

type broker interface {
	DeclareExchange(name string) error
	DeclareQueue(cfg rabbitmq.DeclareQueueConfig) (amqp.Queue, error)
	BindQueue(queue, routingKey, exchange string) error
	Qos(prefetch int) error
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
}

// Consumer runs a dispatch pass for every request read from the dispatch queue.
type Consumer struct {
	broker      broker
	service     service
	queue       amqp.Queue
	tag         string
	concurrency int
	stop        chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

// NewConsumer declares the dispatch queue and binds it to the order exchange.
func NewConsumer(b broker, service service) *Consumer {
	queueName := viper.GetString("rabbitmq.dispatch_queue")
	if queueName == "" {
		panic("rabbitmq.dispatch_queue is not set in config")
	}
	exchange := viper.GetString("rabbitmq.exchange")

	if err := b.DeclareExchange(exchange); err != nil {
		panic(err)
	}

	queue, err := b.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	if err := b.BindQueue(queue.Name, RoutingKey, exchange); err != nil {
		panic(err)
	}

	concurrency := viper.GetInt("rabbitmq.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	tag := viper.GetString("rabbitmq.consumer_tag")
	if tag == "" {
		tag = "tms-dispatch-worker"
	}

	return &Consumer{
		broker:      b,
		service:     service,
		queue:       queue,
		tag:         tag,
		concurrency: concurrency,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run consumes until Shutdown is called or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.broker.Qos(c.concurrency); err != nil {
		close(c.done)
		return err
	}

	msgs, err := c.broker.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: c.tag,
	})
	if err != nil {
		close(c.done)
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", c.tag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					return
				}

				g.Go(func() error {
					c.processMessage(gctx, msg)
					return nil
				})
			}
		}
	}()

	_ = g.Wait()
	close(c.done)

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	var req dispatch.Request
	if err := json.Unmarshal(msg.Body, &req); err != nil || req.OrganizationID <= 0 || req.OrderCode == "" {
		slog.Error("Dropping malformed dispatch request", "delivery_tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	res, err := c.service.Recommend(ctx, req.OrganizationID, req.OrderCode)
	if err != nil {
		requeue := errs.KindOf(err) == errs.KindInternal && !msg.Redelivered
		slog.Error("Dispatch request failed",
			"organization_id", req.OrganizationID,
			"order_code", req.OrderCode,
			"requeue", requeue,
			"error", err)
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)
		return
	}

	slog.Info("Dispatch request processed",
		"organization_id", req.OrganizationID,
		"order_code", req.OrderCode,
		"dispatched", res.NumberOfDispatchedVehicle,
		"message", res.Message)
}

// Shutdown stops reading new deliveries and waits for in-flight ones.
func (c *Consumer) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer")
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
		return nil
	case <-ctx.Done():
		slog.Warn("Consumer shutdown timeout")
		return ctx.Err()
	}
}
