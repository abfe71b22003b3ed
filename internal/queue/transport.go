package queue

import (
	"context"
	"time"
)

// Transport is a durable FIFO-like list per named queue. Push adds to one
// end, Pop removes from the other.
//
// Delivery is at-least-once only up to the pop: there is no acknowledgement
// or visibility timeout, so a job popped by a consumer that then crashes is
// lost.
type Transport interface {
	// Push appends job to the queue. Failures wrap domain.ErrTransport.
	Push(ctx context.Context, queue string, job Job) error
	// Pop waits up to timeout for a job. It returns (nil, nil) on timeout.
	// A payload that was removed but could not be decoded yields an error
	// wrapping domain.ErrMalformedJob; the payload is not put back.
	Pop(ctx context.Context, queue string, timeout time.Duration) (*Job, error)
	// Len reports the number of jobs waiting in the queue.
	Len(ctx context.Context, queue string) (int64, error)
}
