package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/queue"
	"github.com/notifyhub/notification-dispatch/internal/repository"
)

const (
	msgQueued      = "Notification queued for delivery"
	msgQueueFailed = "Failed to queue notification for delivery"

	// errQueueFailed is stored on the record when the initial push fails.
	errQueueFailed = "Failed to queue notification"
)

// WorkerState reports whether the dispatch loop is currently running.
type WorkerState interface {
	Running() bool
}

// NotificationService is the enqueue side of the pipeline: it validates
// submissions, persists them and hands a job to the queue transport.
// HTTP handlers depend on this service, never on the store or queue directly.
type NotificationService struct {
	repo      repository.NotificationRepository
	transport queue.Transport
	queueName string
	worker    WorkerState
	logger    *zap.Logger
	now       func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	transport queue.Transport,
	queueName string,
	worker WorkerState,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		transport: transport,
		queueName: queueName,
		worker:    worker,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates req, inserts a pending record and pushes a job with
// retry_count 0.
//
// A failed push is not retried here: the record is moved to failed and the
// result carries that status, so no pending record is left without a job.
// If that write fails too, an error is returned instead of a result.
// A crash between insert and push still leaves an orphaned pending record;
// nothing sweeps those.
func (s *NotificationService) Submit(ctx context.Context, req domain.CreateNotificationRequest) (*domain.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      req.Type,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    domain.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	if err := s.transport.Push(ctx, s.queueName, queue.NewJob(n.ID)); err != nil {
		s.logger.Error("enqueue failed, marking notification failed",
			zap.String("notification_id", n.ID), zap.Error(err))

		if uerr := s.repo.UpdateStatus(ctx, n.ID, domain.MarkFailed(errQueueFailed)); uerr != nil {
			s.logger.Error("failed to mark notification failed; record left pending without a job",
				zap.String("notification_id", n.ID), zap.Error(uerr))
			return nil, fmt.Errorf("enqueue notification %s: %v; mark failed: %w", n.ID, err, uerr)
		}
		return &domain.SendResult{
			NotificationID: n.ID,
			Status:         domain.StatusFailed,
			Message:        msgQueueFailed,
		}, nil
	}

	s.logger.Debug("notification queued",
		zap.String("notification_id", n.ID), zap.String("type", string(n.Type)))

	return &domain.SendResult{
		NotificationID: n.ID,
		Status:         domain.StatusPending,
		Message:        msgQueued,
	}, nil
}

func (s *NotificationService) Get(ctx context.Context, id string) (*domain.Notification, error) {
	return s.repo.Get(ctx, id)
}

// History returns the user's notifications, newest first.
func (s *NotificationService) History(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Stats takes an operational snapshot. Each count is an independent query,
// so the numbers may not add up under concurrent writes.
func (s *NotificationService) Stats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	counts := []struct {
		status domain.Status
		dst    *int
	}{
		{domain.StatusPending, &st.Pending},
		{domain.StatusSent, &st.Sent},
		{domain.StatusFailed, &st.Failed},
	}
	for _, c := range counts {
		n, err := s.repo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.status, err)
		}
		*c.dst = n
	}
	st.Total = st.Pending + st.Sent + st.Failed

	qlen, err := s.transport.Len(ctx, s.queueName)
	if err != nil {
		return nil, fmt.Errorf("queue length: %w", err)
	}
	st.QueueLength = qlen

	if s.worker != nil {
		st.WorkerRunning = s.worker.Running()
	}
	return &st, nil
}
