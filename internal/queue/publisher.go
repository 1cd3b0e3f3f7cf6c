package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/mail"
)

// Publisher publishes mail events.  It dials per publish: signup mail is
// rare enough that a pooled channel is not worth the reconnect handling.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	log         *logrus.Logger
}

func NewPublisher(cfg config.AMQPConfig, log *logrus.Logger) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.MailQueue, dialTimeout: cfg.DialTimeout, log: log}
}

const defaultDialTimeout = 5 * time.Second

// dialTimeout bounds the broker dial by def and by ctx's deadline,
// whichever is sooner.
func dialTimeout(ctx context.Context, def time.Duration) time.Duration {
	if def <= 0 {
		def = defaultDialTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < def {
			if left <= 0 {
				return time.Millisecond
			}
			return left
		}
	}
	return def
}

// Publish sends ev to the mail queue as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev MailRequestedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: amqp.DefaultDial(dialTimeout(ctx, p.dialTimeout)),
	})
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// publisher is what Mailer needs from Publisher.
type publisher interface {
	Publish(ctx context.Context, ev MailRequestedEvent) error
}

// Mailer queues mail and falls back to sending directly when the broker
// is unavailable.  A nil publisher always sends directly.
type Mailer struct {
	pub      publisher
	fallback mail.Sender
	timeout  time.Duration
	log      *logrus.Logger
}

// NewMailer builds a Mailer.  pub may be nil.
func NewMailer(pub *Publisher, fallback mail.Sender, timeout time.Duration, log *logrus.Logger) *Mailer {
	m := &Mailer{fallback: fallback, timeout: timeout, log: log}
	if pub != nil {
		m.pub = pub
	}
	return m
}

// Send implements mail.Sender.
func (m *Mailer) Send(ctx context.Context, msg mail.Message) error {
	if m.pub != nil {
		err := m.pub.Publish(ctx, MailRequestedEvent{Message: msg, RequestedAt: time.Now().UTC(), Kind: "transactional"})
		if err == nil {
			return nil
		}
		m.log.WithError(err).WithField("to", msg.To).Warn("mail queue unavailable, sending directly")
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.fallback.Send(ctx, msg)
}
