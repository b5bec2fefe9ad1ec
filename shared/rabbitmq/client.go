package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds broker connection and topology settings.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

func (c *Config) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

// Client wraps a single AMQP connection and channel with the exchange,
// queue, and binding declared up front.
type Client struct {
	cfg     *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewClient dials the broker, retrying on failure, and declares the
// verification job topology.
func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{cfg: cfg, logger: logger}

	amqpCfg := amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Locale:    "en_US",
	}
	if cfg.ConnectionTimeout > 0 {
		amqpCfg.Dial = amqp.DefaultDial(cfg.ConnectionTimeout)
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.conn, err = amqp.DialConfig(cfg.url(), amqpCfg)
		if err == nil {
			break
		}
		logger.Error("RabbitMQ connection attempt failed",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)
		if attempt < attempts {
			time.Sleep(cfg.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ client ready",
		slog.String("exchange", cfg.ExchangeName),
		slog.String("queue", cfg.QueueName),
		slog.String("routing_key", cfg.RoutingKey),
	)
	return c, nil
}

func (c *Client) declareTopology() error {
	err := c.channel.ExchangeDeclare(
		c.cfg.ExchangeName,
		c.cfg.ExchangeType,
		c.cfg.ExchangeDurable,
		c.cfg.ExchangeAutoDelete,
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", c.cfg.ExchangeName, err)
	}

	_, err = c.channel.QueueDeclare(
		c.cfg.QueueName,
		c.cfg.QueueDurable,
		c.cfg.QueueAutoDelete,
		c.cfg.QueueExclusive,
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", c.cfg.QueueName, err)
	}

	if err := c.channel.QueueBind(c.cfg.QueueName, c.cfg.RoutingKey, c.cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", c.cfg.QueueName, err)
	}
	return nil
}

// PublishWithRetry publishes a persistent message, retrying with
// exponential backoff. The context bounds each attempt and the waits
// between them.
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	retries := c.cfg.PublishRetries
	if retries <= 0 {
		retries = 3
	}
	delay := c.cfg.PublishRetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	mult := c.cfg.PublishBackoffMult
	if mult <= 1 {
		mult = 2.0
	}

	msg := amqp.Publishing{
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish aborted: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * mult)
		}

		lastErr = c.channel.PublishWithContext(ctx, c.cfg.ExchangeName, c.cfg.RoutingKey, false, false, msg)
		if lastErr == nil {
			if attempt > 0 {
				c.logger.Info("Published message after retry",
					slog.Int("attempt", attempt+1),
					slog.Int("body_size", len(body)),
				)
			} else {
				c.logger.Debug("Published message",
					slog.Int("body_size", len(body)),
					slog.String("content_type", contentType),
				)
			}
			return nil
		}

		c.logger.Warn("Publish attempt failed",
			slog.Any("error", lastErr),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", retries+1),
		)
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, lastErr)
}

// Consume starts delivering messages from the queue with manual
// acknowledgement. Callers ack or nack each delivery themselves.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := c.channel.Consume(
		c.cfg.QueueName,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer %q: %w", consumerTag, err)
	}

	c.logger.Info("Consuming from queue",
		slog.String("queue", c.cfg.QueueName),
		slog.String("consumer_tag", consumerTag),
	)
	return deliveries, nil
}

// GetChannel exposes the underlying channel for QoS and per-delivery
// ack operations.
func (c *Client) GetChannel() *amqp.Channel {
	return c.channel
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}
