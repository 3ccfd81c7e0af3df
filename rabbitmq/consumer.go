package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/queue"
)

const (
	// retryCountHeader tracks redeliveries across republishes, since the
	// broker itself only flags a binary Redelivered bit.
	retryCountHeader = "x-retry-count"
	lastErrorHeader  = "x-last-error"

	defaultMaxAttempts = 5
	prefetchCount      = 8
)

// Consumer runs a queue.Handler against one named queue. Failed tasks are
// republished with an incremented retry counter; after maxAttempts the
// payload moves untouched to <queue>.failed for later inspection instead
// of being dropped. Permanent failures skip retries entirely.
type Consumer struct {
	ch          *amqp.Channel
	queue       string
	failedQueue string
	handler     queue.Handler
	maxAttempts int
}

// NewConsumer opens a channel, declares the work queue and its .failed
// sibling, and sets the prefetch window.
func NewConsumer(client *Client, queueName string, handler queue.Handler) (*Consumer, error) {
	ch, err := client.Channel()
	if err != nil {
		return nil, err
	}

	if _, err := declareDurableQueue(ch, queueName); err != nil {
		return nil, err
	}
	failedQueue := queueName + ".failed"
	if _, err := declareDurableQueue(ch, failedQueue); err != nil {
		return nil, err
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS on %s: %w", queueName, err)
	}

	return &Consumer{
		ch:          ch,
		queue:       queueName,
		failedQueue: failedQueue,
		handler:     handler,
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// BindTopic binds the consumer's queue to a topic exchange pattern, e.g.
// user.* on user_events.
func (c *Consumer) BindTopic(exchange, pattern string) error {
	err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", exchange, err)
	}
	if err := c.ch.QueueBind(c.queue, pattern, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s to %s/%s: %w", c.queue, exchange, pattern, err)
	}
	return nil
}

// Run consumes deliveries until the context is canceled or the channel
// closes. Every delivery is acknowledged exactly once, after its fate is
// decided.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.queue, err)
	}

	log.Info().Str("queue", c.queue).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	attempts := retryCount(d.Headers)
	handlerErr := c.handler(ctx, d.Body)

	switch decide(handlerErr, attempts, c.maxAttempts) {
	case actionAck:
		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("ack failed")
		}

	case actionDiscard:
		log.Warn().Err(handlerErr).Str("queue", c.queue).
			Msg("discarding task after permanent failure")
		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("ack failed")
		}

	case actionRetry:
		log.Warn().Err(handlerErr).Str("queue", c.queue).Int("attempt", attempts+1).
			Msg("task failed, requeueing")
		if err := c.republish(ctx, d, c.queue, attempts+1, handlerErr); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("requeue failed, nacking for broker redelivery")
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)

	case actionFail:
		log.Error().Err(handlerErr).Str("queue", c.queue).Int("attempts", attempts+1).
			Msg("retries exhausted, parking task on failed queue")
		if err := c.republish(ctx, d, c.failedQueue, attempts, handlerErr); err != nil {
			log.Error().Err(err).Str("queue", c.queue).Msg("failed-queue publish failed, nacking")
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) republish(ctx context.Context, d amqp.Delivery, target string, attempts int, cause error) error {
	headers := amqp.Table{retryCountHeader: int32(attempts)}
	if cause != nil {
		headers[lastErrorHeader] = cause.Error()
	}

	return c.ch.PublishWithContext(ctx,
		"",
		target,
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         d.Body,
		},
	)
}

func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	if v, ok := headers[retryCountHeader].(int32); ok {
		return int(v)
	}
	return 0
}

type action int

const (
	actionAck action = iota
	actionRetry
	actionDiscard
	actionFail
)

// decide maps a handler outcome onto the retry policy: success acks,
// permanent failures are discarded without retry, transient failures
// retry until maxAttempts then park on the failed queue.
func decide(err error, attempts, maxAttempts int) action {
	switch {
	case err == nil:
		return actionAck
	case queue.IsPermanent(err):
		return actionDiscard
	case attempts+1 >= maxAttempts:
		return actionFail
	default:
		return actionRetry
	}
}
