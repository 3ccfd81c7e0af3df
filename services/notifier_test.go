package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idport/idport/queue"
)

type fakeSender struct {
	sent []EmailTask
	err  error
}

func (s *fakeSender) Send(to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, EmailTask{To: to, Subject: subject, Body: body})
	return nil
}

func TestEmailHandlerDelivers(t *testing.T) {
	sender := &fakeSender{}
	handler := NewEmailHandler(sender)

	body, err := json.Marshal(EmailTask{
		To:      "alice@example.com",
		Subject: "Verify Your Email Address",
		Body:    "hello",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), body))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
}

func TestEmailHandlerMalformedTaskIsPermanent(t *testing.T) {
	handler := NewEmailHandler(&fakeSender{})

	err := handler(context.Background(), []byte("{broken"))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))

	// Decodes fine but has nowhere to go.
	err = handler(context.Background(), []byte(`{"subject":"s","body":"b"}`))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestEmailHandlerDeliveryFailureIsRetryable(t *testing.T) {
	handler := NewEmailHandler(&fakeSender{err: errors.New("smtp down")})

	body, err := json.Marshal(EmailTask{To: "a@b.c", Subject: "s", Body: "b"})
	require.NoError(t, err)

	err = handler(context.Background(), body)
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}
