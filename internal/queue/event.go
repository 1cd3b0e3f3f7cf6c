// Package queue moves outbound mail through RabbitMQ so request handlers
// never wait on SMTP.
package queue

import (
	"time"

	"github.com/iliyamo/shop-management/internal/mail"
)

// MailRequestedEvent is published for every email the API wants sent.
// The consumer delivers it with the configured mail.Sender.
type MailRequestedEvent struct {
	Message     mail.Message `json:"message"`
	RequestedAt time.Time    `json:"requested_at"`
	Kind        string       `json:"kind"` // e.g. "activation"
}
