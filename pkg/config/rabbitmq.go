package config

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	logger "github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

// InitRabbitMQ connects to the broker with retry logic
func InitRabbitMQ(s RabbitMQSettings) error {
	maxRetries := 10
	retryDelay := 3 * time.Second

	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(s.URL())
		if err == nil {
			RabbitMQ = conn
			logger.Infof("Successfully connected to RabbitMQ at %s", s.Host)
			return nil
		}

		if i < maxRetries-1 {
			logger.Warnf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// PurgeQueue removes all messages from a queue without deleting the queue itself
func PurgeQueue(queueName string) error {
	if RabbitMQ == nil {
		return fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := RabbitMQ.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err = ch.QueuePurge(queueName, false); err != nil {
		return fmt.Errorf("failed to purge queue %s: %w", queueName, err)
	}

	logger.Infof("Successfully purged RabbitMQ queue: %s", queueName)
	return nil
}
