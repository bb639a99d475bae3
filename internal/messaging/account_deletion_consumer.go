package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auth-service/internal/service"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const accountDeletionQueue = "auth_account_deletions"

type accountDeletionMessage struct {
	UserID int64 `json:"user_id"`
}

// AccountDeletionConsumer listens for account deletion events published by
// the user service and purges the corresponding auth data.
type AccountDeletionConsumer struct {
	conn        *amqp091.Connection
	ch          *amqp091.Channel
	authSvc     service.AuthService
	logger      *zap.Logger
	queueName   string
	consumerTag string
	done        chan error
}

// NewAccountDeletionConsumer creates a consumer bound to the deletion queue.
func NewAccountDeletionConsumer(
	conn *amqp091.Connection,
	authSvc service.AuthService,
	logger *zap.Logger,
) (*AccountDeletionConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	if authSvc == nil {
		return nil, fmt.Errorf("AuthService is nil")
	}

	consumerTag := fmt.Sprintf("account_deletion_consumer_%d", time.Now().UnixNano())

	consumer := &AccountDeletionConsumer{
		conn:        conn,
		authSvc:     authSvc,
		logger:      logger.Named("AccountDeletionConsumer").With(zap.String("consumerTag", consumerTag), zap.String("queue", accountDeletionQueue)),
		queueName:   accountDeletionQueue,
		consumerTag: consumerTag,
		done:        make(chan error),
	}

	if err := consumer.setupChannelAndQueue(); err != nil {
		return nil, fmt.Errorf("failed to setup channel and queue: %w", err)
	}

	consumer.logger.Info("AccountDeletionConsumer initialized")
	return consumer, nil
}

func (c *AccountDeletionConsumer) setupChannelAndQueue() error {
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = c.ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue '%s': %w", c.queueName, err)
	}

	// One message at a time: deletion fanout is low-volume and each message
	// touches Postgres and Redis.
	if err = c.ch.Qos(1, 0, false); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	return nil
}

// StartConsuming blocks until the consumer is stopped or the channel closes.
func (c *AccountDeletionConsumer) StartConsuming() error {
	if c.ch == nil {
		return fmt.Errorf("channel is not initialized")
	}
	c.logger.Info("Listening for account deletion events")

	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		c.logger.Error("Failed to register consumer", zap.Error(err))
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go c.handleDeliveries(deliveries)

	go func() {
		notifyClose := make(chan *amqp091.Error)
		c.ch.NotifyClose(notifyClose)
		select {
		case err := <-notifyClose:
			if err != nil {
				c.logger.Error("RabbitMQ channel closed unexpectedly", zap.Error(err))
				c.done <- err
			} else {
				c.done <- nil
			}
		case <-c.done:
		}
	}()

	return <-c.done
}

func (c *AccountDeletionConsumer) handleDeliveries(deliveries <-chan amqp091.Delivery) {
	for d := range deliveries {
		log := c.logger.With(zap.Uint64("deliveryTag", d.DeliveryTag))

		var msg accountDeletionMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil || msg.UserID == 0 {
			log.Warn("Malformed account deletion message, discarding", zap.Error(err))
			if nackErr := d.Nack(false, false); nackErr != nil {
				log.Error("Failed to Nack malformed message", zap.Error(nackErr))
			}
			continue
		}
		log = log.With(zap.Int64("user_id", msg.UserID))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.authSvc.DeleteAccount(ctx, msg.UserID)
		cancel()

		if err != nil {
			log.Error("Account deletion failed, requeueing message", zap.Error(err))
			if nackErr := d.Nack(false, true); nackErr != nil {
				log.Error("Failed to Nack message after service error", zap.Error(nackErr))
			}
			time.Sleep(1 * time.Second)
			continue
		}

		log.Info("Account auth data purged")
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("Failed to Ack message", zap.Error(ackErr))
		}
	}
	c.logger.Info("Deliveries channel closed")
	select {
	case c.done <- nil:
	default:
	}
}

// Stop cancels the subscription and closes the channel.
func (c *AccountDeletionConsumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	c.logger.Info("Stopping AccountDeletionConsumer")

	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("Failed to cancel consumer", zap.Error(err))
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Error("Failed to close RabbitMQ channel", zap.Error(err))
	}

	select {
	case c.done <- nil:
	default:
	}
	return nil
}
