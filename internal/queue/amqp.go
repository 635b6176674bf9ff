package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
)

const retryHeader = "x-retry-count"

// amqpChannel is the subset of *amqp.Channel the queue uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes JSON messages to durable RabbitMQ queues named after the topic.
// Subscribers receive the raw message body ([]byte).
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     amqpChannel
	logger *zap.Logger

	mu       sync.Mutex
	declared map[string]bool

	MaxRetries int
}

// DialAMQP connects to the broker at url and opens a channel.
func DialAMQP(url string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q := newAMQPQueue(ch, log)
	q.conn = conn
	return q, nil
}

func newAMQPQueue(ch amqpChannel, log *zap.Logger) *AMQPQueue {
	return &AMQPQueue{
		ch:         ch,
		logger:     logger.OrNop(log).With(zap.String("component", "amqp")),
		declared:   make(map[string]bool),
		MaxRetries: defaultMaxRetries,
	}
}

// declare must be called with mu held.
func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retryCount int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if retryCount > 0 {
		msg.Headers = amqp.Table{retryHeader: int32(retryCount)}
	}
	if err := q.ch.Publish("", topic, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe consumes topic with manual acks. A failed delivery is
// republished with an incremented x-retry-count until MaxRetries is
// reached, after which it is dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			q.handleDelivery(topic, d, handler)
		}
		q.logger.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(topic string, d amqp.Delivery, handler func(payload any) error) {
	err := handler(d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			q.logger.Error("ack failed", zap.String("topic", topic), zap.Error(ackErr))
		}
		return
	}

	retryCount := retryCountOf(d.Headers)
	log := q.logger.With(zap.String("topic", topic), zap.String("message_id", d.MessageId),
		zap.Int("retry_count", retryCount), zap.Error(err))

	if retryCount < q.MaxRetries {
		if pubErr := q.publish(topic, d.Body, retryCount+1); pubErr != nil {
			log.Error("requeue failed", zap.NamedError("publish_error", pubErr))
			_ = d.Nack(false, true)
			return
		}
		log.Warn("message failed, requeued")
		_ = d.Ack(false)
		return
	}

	log.Error("message permanently failed, dropping")
	_ = d.Nack(false, false)
}

func retryCountOf(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int16:
		return int(v)
	default:
		return 0
	}
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
