package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"product-catalog/internal/catalog"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "notifications-service"

// errMalformed marks deliveries that can never be handled; they are dropped
// instead of requeued.
var errMalformed = errors.New("malformed catalog event")

type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &Consumer{
		channel: ch,
		queue:   queue,
		logger:  logger,
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := handleEvent(c.logger, msg.Body); err != nil {
				requeue := !errors.Is(err, errMalformed)
				c.logger.Error("handle message failed", "error", err, "requeue", requeue)
				_ = msg.Nack(false, requeue)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func handleEvent(logger *slog.Logger, body []byte) error {
	var event catalog.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}

	switch event.EventType {
	case catalog.EventProductCreated, catalog.EventProductUpdated, catalog.EventProductDeleted:
		logger.Info("catalog event",
			"event_type", event.EventType,
			"product_id", event.ProductID,
			"title", event.Title,
			"timestamp", event.Timestamp,
		)
	case catalog.EventFavoriteAdded, catalog.EventFavoriteRemoved:
		logger.Info("favorites event",
			"event_type", event.EventType,
			"product_id", event.ProductID,
			"session_id", event.SessionID,
			"timestamp", event.Timestamp,
		)
	default:
		return fmt.Errorf("%w: unknown event type %q", errMalformed, event.EventType)
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
