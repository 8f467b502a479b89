package chatclient

import (
	"encoding/json"
	"log"

	"showroom-chat/internal/models"
	"showroom-chat/internal/rabbitmq"
)

// AMQPTransport subscribes to the topic exchange the service fans out
// through. It is the push-channel counterpart to the websocket feed and is
// only constructed when AMQP is configured.
type AMQPTransport struct {
	consumer *rabbitmq.Consumer
}

// NewAMQPTransport connects to RabbitMQ.
func NewAMQPTransport(amqpURL, exchange string) (*AMQPTransport, error) {
	consumer, err := rabbitmq.NewConsumer(amqpURL, exchange)
	if err != nil {
		return nil, err
	}
	return &AMQPTransport{consumer: consumer}, nil
}

func (t *AMQPTransport) Name() string { return "amqp" }

// Subscribe binds to the conversation's routing key and pumps decoded
// events into fn.
func (t *AMQPTransport) Subscribe(conversationID, kind string, fn func(models.ChatEvent)) (Subscription, error) {
	routingKey := rabbitmq.MessageRoutingKey(conversationID)
	if kind == models.EventTyping {
		routingKey = rabbitmq.TypingRoutingKey(conversationID)
	}

	return t.consumer.Subscribe(routingKey, func(body []byte) {
		var event models.ChatEvent
		if err := json.Unmarshal(body, &event); err != nil {
			log.Printf("amqp feed decode error: %v", err)
			return
		}
		fn(event)
	})
}

// Close terminates the AMQP connection and every open subscription.
func (t *AMQPTransport) Close() error {
	return t.consumer.Close()
}
