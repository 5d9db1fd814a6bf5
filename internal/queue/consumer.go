package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.  A non-nil error requeues the
// message unless it wraps ErrBadEvent.
type Handler func(ctx context.Context, ev OrderPlacedEvent) error

// ConsumerConfig names the broker and the topology the consumer declares.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// StartWarehouseConsumer connects to RabbitMQ, declares the durable orders
// exchange and warehouse queue, binds them on order.placed and hands every
// delivery to handle.  It runs a reconnect loop with exponential backoff
// capped at 30s and only returns once ctx is cancelled.  Messages that fail
// to decode are rejected without requeue; load failures are requeued after
// RequeueDelay.
func StartWarehouseConsumer(ctx context.Context, cfg ConsumerConfig, handle Handler) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Printf("warehouse-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("warehouse-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// DeclareTopology declares the durable topic exchange, the durable queue and
// the order.placed binding between them.  It is idempotent.
func DeclareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queue, RoutingOrderPlaced, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("warehouse-consumer: set QoS failed: %v", err)
	}
	if err := DeclareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			settle(ctx, d, handleMessage(ctx, d.Body, handle), RequeueDelay)
		}
	}
}

// RequeueDelay is how long the consumer waits before handing a failed
// delivery back to the broker.
var RequeueDelay = 5 * time.Second

// settle acknowledges d according to the outcome of its handler.  A bad
// event is dropped; any other failure goes back to the queue after delay.
func settle(ctx context.Context, d amqp.Delivery, err error, delay time.Duration) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrBadEvent):
		log.Printf("warehouse-consumer: dropping message: %v", err)
		_ = d.Nack(false, false)
	default:
		log.Printf("warehouse-consumer: handle message failed: %v; requeueing in %s", err, delay)
		sleep(ctx, delay)
		_ = d.Nack(false, true)
	}
}

// ErrBadEvent marks a payload that can never be processed.
var ErrBadEvent = errors.New("bad event")

func handleMessage(ctx context.Context, body []byte, handle Handler) error {
	var ev OrderPlacedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrBadEvent, err)
	}
	if ev.OrderID <= 0 || ev.OrderPublicID == "" {
		return fmt.Errorf("%w: order id missing", ErrBadEvent)
	}
	if len(ev.Lines) == 0 {
		return fmt.Errorf("%w: order %d has no lines", ErrBadEvent, ev.OrderID)
	}
	return handle(ctx, ev)
}
