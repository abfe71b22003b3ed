// Package channel holds the per-type delivery mechanisms. The dispatch core
// treats every failure opaquely: only the error text is kept.
package channel

import (
	"context"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// Sender delivers one message to one recipient. A nil error means the
// provider accepted the message.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, recipient, subject, body string) error

func (f SenderFunc) Send(ctx context.Context, recipient, subject, body string) error {
	return f(ctx, recipient, subject, body)
}

// Registry maps a notification type to its sender.
type Registry map[domain.Type]Sender

// Lookup returns the sender for t, if one is registered.
func (r Registry) Lookup(t domain.Type) (Sender, bool) {
	s, ok := r[t]
	return s, ok
}
