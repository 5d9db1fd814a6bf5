package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/senseivictor/baza-de-date/internal/queue"
)

// EventPublisher publishes domain events to the message broker.  Services
// treat a nil EventPublisher as "events disabled".
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error
}

// ErrBrokerBackoff is returned while the publisher waits out RedialAfter
// following a failed dial.
var ErrBrokerBackoff = errors.New("broker unreachable, not redialing yet")

// AMQPPublisher publishes persistent JSON messages to a durable topic
// exchange.  The connection is opened lazily and reopened after a failure.
// Errors are logged and returned so callers can choose to ignore them
// without interrupting the main request flow.
type AMQPPublisher struct {
	url      string
	exchange string

	// DialTimeout bounds the TCP connect; RedialAfter is how long publishes
	// fail fast with ErrBrokerBackoff after a failed dial.
	DialTimeout time.Duration
	RedialAfter time.Duration

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// NewAMQPPublisher returns a publisher for the given broker and exchange.
func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, DialTimeout: 2 * time.Second, RedialAfter: 10 * time.Second}
}

// channel returns an open channel; p.mu must be held.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if time.Now().Before(p.nextDial) {
			return nil, ErrBrokerBackoff
		}
		conn, err := amqp.DialConfig(p.url, amqp.Config{Locale: "en_US", Dial: amqp.DefaultDial(p.DialTimeout)})
		if err != nil {
			p.nextDial = time.Now().Add(p.RedialAfter)
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// PublishOrderPlaced sends ev with routing key order.placed.
func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		log.Printf("rabbitmq: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.OrderPublicID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, queue.RoutingOrderPlaced, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		_ = ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
