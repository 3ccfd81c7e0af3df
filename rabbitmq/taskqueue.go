package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/idport/idport/queue"
)

// TaskQueue implements queue.TaskQueue on RabbitMQ. Each lane is a
// durable queue on the default exchange; tasks are persistent JSON
// messages that survive broker restarts until acknowledged.
type TaskQueue struct {
	ch *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

// NewTaskQueue opens a publishing channel for deferred tasks.
func NewTaskQueue(client *Client) (*TaskQueue, error) {
	ch, err := client.Channel()
	if err != nil {
		return nil, err
	}
	return &TaskQueue{ch: ch, declared: make(map[string]bool)}, nil
}

// Enqueue serializes the payload and publishes it on the lane's queue.
func (q *TaskQueue) Enqueue(ctx context.Context, lane string, payload any) error {
	if err := q.declareOnce(lane); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.ch.PublishWithContext(ctx,
		"",   // default exchange
		lane, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task on %s: %w", lane, err)
	}
	return nil
}

func (q *TaskQueue) declareOnce(lane string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.declared[lane] {
		return nil
	}
	if _, err := declareDurableQueue(q.ch, lane); err != nil {
		return err
	}
	q.declared[lane] = true
	return nil
}

func declareDurableQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	decl, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return decl, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return decl, nil
}

var _ queue.TaskQueue = (*TaskQueue)(nil)
