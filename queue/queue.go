// Package queue defines the deferred task contract shared by both
// services: any unit of work that must not run inline with the triggering
// request goes through a named lane on durable infrastructure. The broker
// guarantees persistence until ack and at-least-once redelivery; this
// package only fixes the failure policy layered on top.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// Lane names. Separate lanes keep notification dispatch and identity
// event processing from starving each other.
const (
	LaneSendEmail  = "send_email"
	LaneUserEvents = "user_events.profile"
)

// TaskQueue enqueues a payload on a named lane. The payload is serialized
// to JSON and survives until a worker acknowledges it.
type TaskQueue interface {
	Enqueue(ctx context.Context, lane string, payload any) error
}

// Handler processes one task body. A returned error triggers the lane's
// retry policy unless it is marked permanent.
type Handler func(ctx context.Context, body []byte) error

// errPermanent marks failures that must not be retried.
var errPermanent = errors.New("permanent task failure")

// Permanent wraps err so the consumer discards the task instead of
// retrying it. Meant for validation-style failures: a malformed payload
// will not become well-formed on redelivery.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", errPermanent, err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}
