package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/idport/idport/domain"
)

// EventPublisher emits user-event envelopes on the durable user_events
// topic exchange. Publication is synchronous with the mutating request
// but the caller never waits for consumer acknowledgment; once the broker
// accepts the message, delivery is its problem.
type EventPublisher struct {
	mu      sync.Mutex
	ch      *amqp.Channel
	service string
}

// NewEventPublisher opens a channel and declares the user_events exchange
// (durable, non-exclusive) so delivery survives consumer restarts.
func NewEventPublisher(client *Client, service string) (*EventPublisher, error) {
	ch, err := client.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		domain.UserEventsExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare %s exchange: %w", domain.UserEventsExchange, err)
	}

	return &EventPublisher{ch: ch, service: service}, nil
}

// Publish builds an envelope from a fully materialized identity snapshot
// and emits it under the routing key user.<eventType> as a persistent
// message.
func (p *EventPublisher) Publish(ctx context.Context, eventType domain.EventType, snapshot domain.UserSnapshot) error {
	envelope := domain.UserEvent{
		EventType: eventType,
		Data:      snapshot,
		Timestamp: time.Now().UTC(),
		Service:   p.service,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	routingKey := eventType.RoutingKey()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		domain.UserEventsExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    envelope.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	log.Info().
		Str("event_type", string(eventType)).
		Str("routing_key", routingKey).
		Str("user_id", snapshot.ID).
		Msg("user event published")

	return nil
}
