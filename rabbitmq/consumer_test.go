package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/idport/idport/queue"
)

func TestDecide(t *testing.T) {
	transient := errors.New("store unavailable")
	permanent := queue.Permanent(errors.New("malformed payload"))

	tests := []struct {
		name     string
		err      error
		attempts int
		want     action
	}{
		{"success acks", nil, 0, actionAck},
		{"success acks regardless of attempts", nil, 4, actionAck},
		{"transient failure retries", transient, 0, actionRetry},
		{"transient failure keeps retrying", transient, 3, actionRetry},
		{"transient failure parks after exhaustion", transient, 4, actionFail},
		{"permanent failure discards immediately", permanent, 0, actionDiscard},
		{"permanent failure never parks", permanent, 4, actionDiscard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.err, tt.attempts, defaultMaxAttempts))
		})
	}
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryCountHeader: int32(3)}))
	// Foreign header types fall back to zero rather than panicking.
	assert.Equal(t, 0, retryCount(amqp.Table{retryCountHeader: "3"}))
}
