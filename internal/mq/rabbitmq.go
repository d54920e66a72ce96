package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flatcms/accounts/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes to one fanout exchange per channel so that every
// bound queue gets a copy of each event.
type RabbitMQClient struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	mu              sync.Mutex
	queueDurable    bool
	queueAutoDelete bool
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish sends a message to the fanout exchange named channel.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := newMessageID()
	err := r.channel.PublishWithContext(ctx, channel, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: r.deliveryMode(),
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe binds a queue to the exchange named channel and consumes it.
// Durable setups share the queue "<channel>.subscriber" so events survive
// restarts of the consumer; otherwise each call gets a private queue.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	queue, err := r.bindQueue(channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	consumerTag := fmt.Sprintf("accounts-%s", newMessageID())
	deliveries, err := r.channel.Consume(queue.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) declareExchange(name string) error {
	return r.channel.ExchangeDeclare(name, amqp.ExchangeFanout, r.queueDurable, false, false, false, nil)
}

func (r *RabbitMQClient) bindQueue(channel string) (amqp.Queue, error) {
	if err := r.declareExchange(channel); err != nil {
		return amqp.Queue{}, err
	}

	name, exclusive := subscriberQueue(channel, r.queueDurable)
	queue, err := r.channel.QueueDeclare(name, r.queueDurable, r.queueAutoDelete || exclusive, exclusive, false, nil)
	if err != nil {
		return amqp.Queue{}, err
	}
	if err := r.channel.QueueBind(queue.Name, "", channel, false, nil); err != nil {
		return amqp.Queue{}, err
	}
	return queue, nil
}

func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.queueDurable {
		return amqp.Persistent
	}
	return amqp.Transient
}

// subscriberQueue names the queue a subscriber binds. An empty name lets the
// broker pick one.
func subscriberQueue(channel string, durable bool) (name string, exclusive bool) {
	if durable {
		return channel + ".subscriber", false
	}
	return "", true
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
