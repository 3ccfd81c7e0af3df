package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/idport/idport/queue"
)

// EmailSender delivers a single message. *mailer.Mailer satisfies it.
type EmailSender interface {
	Send(to, subject, body string) error
}

// EmailTask is the payload enqueued on the send_email lane. The fields
// mirror what the worker needs to hand the message to the mailer.
type EmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier schedules outbound emails through the task queue instead of
// sending them inline, so a slow or unreachable SMTP server never
// stalls a request.
type Notifier struct {
	tasks queue.TaskQueue
}

func NewNotifier(tasks queue.TaskQueue) *Notifier {
	return &Notifier{tasks: tasks}
}

// VerificationEmail queues the initial email-verification message sent
// right after registration.
func (n *Notifier) VerificationEmail(ctx context.Context, to, verificationURL string) error {
	return n.enqueue(ctx, EmailTask{
		To:      to,
		Subject: "Verify Your Email Address",
		Body:    "Please click the following link to verify your email address: " + verificationURL,
	})
}

// VerificationReminderEmail queues the message sent when an unverified
// user attempts to log in.
func (n *Notifier) VerificationReminderEmail(ctx context.Context, to, verificationURL string) error {
	return n.enqueue(ctx, EmailTask{
		To:      to,
		Subject: "Verify Your Email Address",
		Body:    "You must verify your email address before logging in. Please click the following link: " + verificationURL,
	})
}

// PasswordResetEmail queues the password reset message.
func (n *Notifier) PasswordResetEmail(ctx context.Context, to, resetURL string) error {
	return n.enqueue(ctx, EmailTask{
		To:      to,
		Subject: "Reset Your Password",
		Body:    "We received a request to reset your password. Click the following link to choose a new one: " + resetURL,
	})
}

func (n *Notifier) enqueue(ctx context.Context, task EmailTask) error {
	if err := n.tasks.Enqueue(ctx, queue.LaneSendEmail, task); err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	return nil
}

// NewEmailHandler returns the worker-side handler for the send_email
// lane. Malformed or incomplete tasks are permanent failures; delivery
// errors are retryable.
func NewEmailHandler(sender EmailSender) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		var task EmailTask
		if err := json.Unmarshal(body, &task); err != nil {
			return queue.Permanent(fmt.Errorf("malformed email task: %w", err))
		}
		if task.To == "" || task.Subject == "" {
			return queue.Permanent(fmt.Errorf("email task missing recipient or subject"))
		}

		if err := sender.Send(task.To, task.Subject, task.Body); err != nil {
			return fmt.Errorf("failed to send email to %s: %w", task.To, err)
		}

		log.Info().Str("to", task.To).Str("subject", task.Subject).Msg("Email sent")
		return nil
	}
}
