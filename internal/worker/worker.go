package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-dispatch/internal/channel"
	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/queue"
	"github.com/notifyhub/notification-dispatch/internal/repository"
)

// DefaultErrorPause is how long the loop backs off after a transport error.
const DefaultErrorPause = time.Second

// Outcome is the result of processing a single job.
type Outcome int

const (
	// OutcomeSkipped: nothing to do (record missing or already terminal).
	OutcomeSkipped Outcome = iota
	OutcomeSent
	// OutcomeRetried: the attempt failed and a new job was pushed.
	OutcomeRetried
	OutcomeFailed
	// OutcomeStoreError: the terminal write was rejected by the store, so
	// the record is left pending with no job queued for it.
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeRetried:
		return "retried"
	case OutcomeFailed:
		return "failed"
	case OutcomeStoreError:
		return "store_error"
	default:
		return "skipped"
	}
}

// MetricHooks carries the metric callbacks injected by main.
// Any nil hook is a no-op.
type MetricHooks struct {
	OnSent    func(t domain.Type, latency time.Duration)
	OnFailed  func(t domain.Type)
	OnRetry   func(t domain.Type)
	OnDropped func()
}

func (h *MetricHooks) fill() {
	if h.OnSent == nil {
		h.OnSent = func(domain.Type, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Type) {}
	}
	if h.OnRetry == nil {
		h.OnRetry = func(domain.Type) {}
	}
	if h.OnDropped == nil {
		h.OnDropped = func() {}
	}
}

// Config controls the dispatch loop.
type Config struct {
	QueueName string
	// MaxAttempts is the total number of send attempts per notification,
	// the first one included.
	MaxAttempts int
	PopTimeout  time.Duration
	ErrorPause  time.Duration
}

// Dispatcher pops jobs from the queue transport and delivers them through
// the sender registered for the notification type.
//
// Only one Dispatcher per queue is assumed. With several consumers the
// pending check in Process is racy: two of them may both send before one
// commits. The store's conditional update makes the loser see
// ErrInvalidTransition, but the duplicate send has already happened.
type Dispatcher struct {
	repo      repository.NotificationRepository
	transport queue.Transport
	senders   channel.Registry
	cfg       Config
	logger    *zap.Logger
	hooks     MetricHooks
	now       func() time.Time
}

func NewDispatcher(
	repo repository.NotificationRepository,
	transport queue.Transport,
	senders channel.Registry,
	cfg Config,
	logger *zap.Logger,
	hooks MetricHooks,
) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = DefaultErrorPause
	}
	hooks.fill()
	return &Dispatcher{
		repo:      repo,
		transport: transport,
		senders:   senders,
		cfg:       cfg,
		logger:    logger,
		hooks:     hooks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run pops and processes jobs until ctx is cancelled. Cancellation is only
// observed between iterations: a popped job is always processed to the end,
// so stopping takes at most one pop timeout plus one in-flight send.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started",
		zap.String("queue", d.cfg.QueueName),
		zap.Int("max_attempts", d.cfg.MaxAttempts))

	work := context.WithoutCancel(ctx)
	for ctx.Err() == nil {
		job, err := d.transport.Pop(work, d.cfg.QueueName, d.cfg.PopTimeout)
		switch {
		case errors.Is(err, domain.ErrMalformedJob):
			d.logger.Warn("dropping malformed job", zap.Error(err))
			d.hooks.OnDropped()
		case err != nil:
			d.logger.Error("queue pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.ErrorPause):
			}
		case job != nil:
			d.Process(work, *job)
		}
	}

	d.logger.Info("dispatcher stopped")
}

// Process handles one job: load the record, skip it unless pending, send,
// then commit sent or hand the failure to the retry policy.
func (d *Dispatcher) Process(ctx context.Context, job queue.Job) Outcome {
	log := d.logger.With(
		zap.String("notification_id", job.NotificationID),
		zap.Int("retry_count", job.RetryCount),
	)

	n, err := d.repo.Get(ctx, job.NotificationID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("notification not found, dropping job")
		return OutcomeSkipped
	}
	if err != nil {
		log.Error("failed to load notification", zap.Error(err))
		return d.handleFailure(ctx, log, job, "", fmt.Errorf("load notification: %w", err))
	}

	log = log.With(zap.String("type", string(n.Type)))

	if n.Status != domain.StatusPending {
		log.Debug("notification already handled", zap.String("status", string(n.Status)))
		return OutcomeSkipped
	}

	sender, ok := d.senders.Lookup(n.Type)
	if !ok {
		log.Error("no sender for notification type")
		return d.markFailed(ctx, log, n.ID, n.Type, fmt.Sprintf("%s: %s", domain.ErrUnknownType, n.Type))
	}

	start := time.Now()
	err = sender.Send(ctx, n.Recipient, n.SubjectOrDefault(), n.Content)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("send failed", zap.Error(err), zap.Duration("latency", elapsed))
		return d.handleFailure(ctx, log, job, n.Type, err)
	}

	err = d.repo.UpdateStatus(ctx, n.ID, domain.MarkSent(d.now()))
	if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
		log.Warn("notification committed elsewhere after send", zap.Error(err))
		return OutcomeSkipped
	}
	if err != nil {
		log.Error("failed to mark notification sent", zap.Error(err))
		return d.handleFailure(ctx, log, job, n.Type, fmt.Errorf("mark sent: %w", err))
	}

	d.hooks.OnSent(n.Type, elapsed)
	log.Info("notification sent", zap.Duration("latency", elapsed))
	return OutcomeSent
}

// handleFailure re-pushes a fresh job while attempts remain, otherwise it
// marks the record failed with the failure detail. The record stays
// pending across retries.
func (d *Dispatcher) handleFailure(ctx context.Context, log *zap.Logger, job queue.Job, t domain.Type, cause error) Outcome {
	if job.RetryCount+1 < d.cfg.MaxAttempts {
		retry := job.Retry()
		err := d.transport.Push(ctx, d.cfg.QueueName, retry)
		if err == nil {
			d.hooks.OnRetry(t)
			log.Info("retry queued", zap.Int("next_retry_count", retry.RetryCount))
			return OutcomeRetried
		}
		log.Error("failed to queue retry", zap.Error(err))
		cause = fmt.Errorf("%v; requeue failed: %w", cause, err)
	}
	return d.markFailed(ctx, log, job.NotificationID, t, cause.Error())
}

func (d *Dispatcher) markFailed(ctx context.Context, log *zap.Logger, id string, t domain.Type, msg string) Outcome {
	err := d.repo.UpdateStatus(ctx, id, domain.MarkFailed(msg))
	switch {
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		log.Warn("notification no longer pending, not marking failed", zap.Error(err))
		return OutcomeSkipped
	case err != nil:
		log.Error("failed to mark notification failed; record left pending without a job",
			zap.Error(err), zap.String("send_error", msg))
		return OutcomeStoreError
	}
	d.hooks.OnFailed(t)
	log.Warn("notification failed permanently", zap.String("error", msg))
	return OutcomeFailed
}
