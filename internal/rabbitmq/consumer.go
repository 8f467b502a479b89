package rabbitmq

import (
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer receives conversation events from the topic exchange. Each
// Subscribe call gets its own exclusive auto-delete queue bound to one
// routing key, so cancelling one subscription never disturbs another.
type Consumer struct {
	conn     *amqp.Connection
	exchange string

	mu     sync.Mutex
	closed bool
}

// NewConsumer connects to RabbitMQ and declares the topic exchange.
func NewConsumer(amqpURL, exchange string) (*Consumer, error) {
	if amqpURL == "" {
		return nil, fmt.Errorf("amqp url is empty")
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	_ = ch.Close()

	return &Consumer{conn: conn, exchange: exchange}, nil
}

// Subscription is a live binding to one routing key.
type Subscription struct {
	ch   *amqp.Channel
	once sync.Once
}

// Close cancels the subscription and releases its channel. Safe to call
// more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ch.Close()
	})
	return err
}

// Subscribe binds a fresh queue to the routing key and invokes fn for every
// delivered body until the subscription is closed.
func (c *Consumer) Subscribe(routingKey string, fn func(body []byte)) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("consumer closed")
	}
	c.mu.Unlock()

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, routingKey, c.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	go func() {
		for d := range deliveries {
			fn(d.Body)
		}
	}()

	log.Printf("rabbitmq subscribed routing_key=%s queue=%s", routingKey, queue.Name)
	return &Subscription{ch: ch}, nil
}

// Close terminates the connection and every open subscription.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
