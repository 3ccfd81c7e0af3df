// Package rabbitmq implements the broker transport on RabbitMQ: the
// user-event topic exchange, the deferred task lanes and the consumer
// loop with its retry policy.
package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client wraps an AMQP connection. Publishers and consumers each open
// their own channel on it; channels are not safe for concurrent use but
// the connection is.
type Client struct {
	conn *amqp.Connection
}

// Dial connects to the broker.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Channel opens a new channel on the connection.
func (c *Client) Channel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	return ch, nil
}

// Close shuts down the connection and every channel on it.
func (c *Client) Close() error {
	return c.conn.Close()
}
