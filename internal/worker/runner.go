package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runner owns the lifecycle of a single Dispatcher loop. It replaces a
// process-wide "running" flag: state lives on the instance.
type Runner struct {
	d *Dispatcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

func NewRunner(d *Dispatcher) *Runner {
	return &Runner{d: d}
}

// Start launches the loop in a goroutine. Cancelling ctx has the same
// effect as Stop. Calling Start while a loop is still alive is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.running.Load() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running.Store(true)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.exited()
		r.d.Run(ctx)
	}()
}

// exited resets the run state so Start works again after the parent ctx
// was cancelled without a Stop.
func (r *Runner) exited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.running.Store(false)
}

// Stop signals the loop to exit after the current iteration. It does not
// wait; call Wait for that.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Wait blocks until the loop has returned. In-flight sends finish first.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Running reports whether the loop goroutine is alive.
func (r *Runner) Running() bool {
	return r.running.Load()
}
