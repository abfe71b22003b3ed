package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// DefaultMemoryCapacity bounds each in-memory queue.
const DefaultMemoryCapacity = 10000

// MemoryTransport holds one buffered channel per queue name. It is not
// durable and exists for tests and QUEUE_BACKEND=memory local runs.
//
// Payloads are stored encoded so the codec path (and malformed payload
// handling) is the same as for Redis.
type MemoryTransport struct {
	mu       sync.Mutex
	queues   map[string]chan []byte
	capacity int

	// PushErr, when set, makes every Push fail. Used by tests.
	PushErr error
}

func NewMemoryTransport(capacity int) *MemoryTransport {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryTransport{queues: make(map[string]chan []byte), capacity: capacity}
}

func (t *MemoryTransport) queue(name string) chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[name]
	if !ok {
		q = make(chan []byte, t.capacity)
		t.queues[name] = q
	}
	return q
}

// Push is non-blocking: a full queue is reported as a transport error
// rather than stalling the caller.
func (t *MemoryTransport) Push(_ context.Context, queue string, job Job) error {
	if t.PushErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, t.PushErr)
	}
	payload, err := Encode(job)
	if err != nil {
		return fmt.Errorf("%w: encode job: %v", domain.ErrTransport, err)
	}
	return t.PushRaw(queue, payload)
}

// PushRaw enqueues an already-encoded payload.
func (t *MemoryTransport) PushRaw(queue string, payload []byte) error {
	select {
	case t.queue(queue) <- payload:
		return nil
	default:
		return fmt.Errorf("%w: queue %s is full", domain.ErrTransport, queue)
	}
}

func (t *MemoryTransport) Pop(ctx context.Context, queue string, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-t.queue(queue):
		job, err := Decode(payload)
		if err != nil {
			return nil, err
		}
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
	}
}

func (t *MemoryTransport) Len(_ context.Context, queue string) (int64, error) {
	return int64(len(t.queue(queue))), nil
}

var _ Transport = (*MemoryTransport)(nil)
