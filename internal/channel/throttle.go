package channel

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// Throttled wraps a sender with a token bucket so a single provider never
// sees more than ratePerSec calls per second. Burst equals the rate.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottled returns next unchanged when ratePerSec <= 0.
func NewThrottled(next Sender, ratePerSec int) Sender {
	if ratePerSec <= 0 {
		return next
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Send blocks until the limiter grants a token, then delegates.
func (t *Throttled) Send(ctx context.Context, recipient, subject, body string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", domain.ErrSend, err)
	}
	return t.next.Send(ctx, recipient, subject, body)
}
