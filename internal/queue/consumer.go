package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/mail"
)

const maxBackoff = 30 * time.Second

// Consumer delivers queued mail events with a mail.Sender.
type Consumer struct {
	cfg     config.AMQPConfig
	sender  mail.Sender
	timeout time.Duration
	log     *logrus.Logger
}

func NewConsumer(cfg config.AMQPConfig, sender mail.Sender, sendTimeout time.Duration, log *logrus.Logger) *Consumer {
	return &Consumer{cfg: cfg, sender: sender, timeout: sendTimeout, log: log}
}

// Run connects to RabbitMQ, declares the durable mail queue and consumes
// until ctx is cancelled.  Broker failures are retried with exponential
// backoff, so Run only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.initialBackoff()
	for {
		conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
			Dial: amqp.DefaultDial(dialTimeout(ctx, c.cfg.DialTimeout)),
		})
		if err != nil {
			c.log.WithError(err).Warnf("mail-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = c.initialBackoff()

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("mail-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) initialBackoff() time.Duration {
	if c.cfg.Backoff <= 0 {
		return time.Second
	}
	return c.cfg.Backoff
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.WithError(err).Warn("mail-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.cfg.MailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.MailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Error("mail-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one delivery body and sends the mail.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev MailRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.sender.Send(ctx, ev.Message); err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"to": ev.Message.To, "kind": ev.Kind}).Info("mail delivered")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
