package config

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	logger "github.com/sirupsen/logrus"
)

const (
	minRequeueDelay = time.Second
	maxRequeueDelay = time.Minute
)

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	backoff retryBackoff
}

// retryBackoff doubles the wait before each requeue while the handler keeps
// failing, up to max. A success resets it.
type retryBackoff struct {
	min, max time.Duration
	failures int
}

func (b *retryBackoff) failed() time.Duration {
	delay := b.min
	for i := 0; i < b.failures && delay < b.max; i++ {
		delay *= 2
	}
	if delay > b.max {
		delay = b.max
	}
	b.failures++
	return delay
}

func (b *retryBackoff) reset() { b.failures = 0 }

func NewConsumer(queueName string) (*Consumer, error) {
	if RabbitMQ == nil {
		return nil, errors.New("RabbitMQ connection not initialized")
	}
	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, err
	}

	// one unacked message at a time, recomputes must not overlap
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    RabbitMQ,
		channel: ch,
		queue:   q.Name,
		backoff: retryBackoff{min: minRequeueDelay, max: maxRequeueDelay},
	}, nil
}

// Handler processes one message body. A nil error acks the message;
// ErrDiscard drops it; any other error requeues it.
type Handler func(ctx context.Context, body []byte) error

// ErrDiscard marks a message that can never succeed.
var ErrDiscard = errors.New("discard message")

// Consume blocks until ctx is done or the channel closes.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	logger.Infof("Consumer is running on queue: %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("consumer channel closed")
			}
			if err := c.deliver(ctx, msg, handler); err != nil {
				return err
			}
		}
	}
}

// deliver runs handler on one message and settles it. Failed messages are
// requeued after the backoff delay; only ctx ending stops the wait.
func (c *Consumer) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) error {
	err := handler(ctx, msg.Body)
	switch {
	case err == nil:
		c.backoff.reset()
		return msg.Ack(false)
	case errors.Is(err, ErrDiscard):
		logger.Warnf("Discard msg: %v", err)
		return msg.Nack(false, false)
	}

	delay := c.backoff.failed()
	logger.Errorf("Handle msg failed, requeue in %s: %v", delay, err)
	select {
	case <-ctx.Done():
		msg.Nack(false, true)
		return ctx.Err()
	case <-time.After(delay):
	}
	return msg.Nack(false, true) // requeue the message
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
