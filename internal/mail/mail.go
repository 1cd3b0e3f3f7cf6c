// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/shop-management/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrInvalidMessage is returned for a message without recipient or subject.
var ErrInvalidMessage = errors.New("mail: recipient and subject are required")

// SMTPSender sends through an SMTP relay with gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender from cfg.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) build(msg Message) (*gomail.Message, error) {
	if msg.To == "" || msg.Subject == "" {
		return nil, ErrInvalidMessage
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m, nil
}

// Send dials the relay and sends msg.  gomail has no context support, so
// the send runs in a goroutine and ctx only bounds how long we wait.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender only logs messages.  It is used when no SMTP host is set.
type LogSender struct {
	Log *logrus.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" || msg.Subject == "" {
		return ErrInvalidMessage
	}
	s.Log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("mail delivery disabled, message dropped")
	return nil
}

// NewSender returns an SMTPSender when cfg names a host and a LogSender
// otherwise.
func NewSender(cfg config.SMTPConfig, log *logrus.Logger) Sender {
	if cfg.Host == "" {
		return LogSender{Log: log}
	}
	return NewSMTPSender(cfg)
}
