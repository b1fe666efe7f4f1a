package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/streadway/amqp"
)

const orderQueue = "order_events"

// Event routing keys.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// Publisher publishes order lifecycle events to a durable AMQP queue.
// Call sites tolerate a nil *Publisher, so the broker is optional.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher connects to the broker and declares the order event queue.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(orderQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", orderQueue, err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish sends an event as a persistent JSON message. A nil publisher is a
// no-op so handlers can run without a broker configured.
func (p *Publisher) Publish(eventType string, payload map[string]any) {
	if p == nil || p.channel == nil {
		return
	}

	payload["event"] = eventType
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Events] Failed to marshal %s event: %v", eventType, err)
		return
	}

	err = p.channel.Publish("", orderQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		log.Printf("[Events] Failed to publish %s event: %v", eventType, err)
	}
}
