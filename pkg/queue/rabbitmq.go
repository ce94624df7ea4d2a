package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"thsnd/pkg/config"
	"thsnd/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ProfileEventsExchange = "profile_events"
	ProfileEventsQueue    = "profile_events_queue"
)

const (
	EventUserRegistered = "user_registered"
	EventProfileUpdated = "profile_updated"
	EventAssetBound     = "asset_bound"
)

// ProfileEvent is published after a profile write has been persisted.
type ProfileEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	CustomURL  string    `json:"custom_url"`
	AssetKind  string    `json:"asset_kind,omitempty"`
	AssetURL   string    `json:"asset_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	if cfg.RabbitMQHost == "" {
		return nil, fmt.Errorf("RABBITMQ_HOST is not set")
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ProfileEventsExchange, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ProfileEventsQueue, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// every profile event type lands in the same queue
	if err := channel.QueueBind(ProfileEventsQueue, "#", ProfileEventsExchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) PublishProfileEvent(event ProfileEvent) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	if err := c.channel.Publish(ProfileEventsExchange, event.Type, false, false, msg); err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish %s event for user %s: %v", event.Type, event.UserID, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Published %s event for user %s", event.Type, event.UserID)
	return nil
}

func newPublishing(event ProfileEvent) (amqp.Publishing, error) {
	if event.Type == "" {
		return amqp.Publishing{}, fmt.Errorf("event type is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
	}, nil
}
