// Package mailer sends outbound notification email over SMTP. It is only
// ever invoked from the send_email worker lane, never inline with a
// request.
package mailer

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

// Mailer is an SMTP email sender.
type Mailer struct {
	config *smtpConfig
	dialer *gomail.Dialer
}

// New creates a Mailer configured from SMTP_* environment variables.
func New() (*Mailer, error) {
	cfg, err := env.ParseAs[smtpConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse SMTP environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Mailer{
		config: &cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers a single plain-text email.
func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

type smtpConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

func (c *smtpConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}
