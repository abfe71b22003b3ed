package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// MemoryNotificationRepository is an in-memory NotificationRepository used
// in unit tests and when STORE_BACKEND=memory. Records are cloned on the
// way in and out so callers never share state with the store.
type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides, set in tests to simulate failure paths.
	InsertErr       error
	GetErr          error
	UpdateStatusErr error
	CountErr        error
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MemoryNotificationRepository) Insert(_ context.Context, n *domain.Notification) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MemoryNotificationRepository) Get(_ context.Context, id string) (*domain.Notification, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MemoryNotificationRepository) UpdateStatus(_ context.Context, id string, u domain.StatusUpdate) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	if err := u.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !n.Status.CanTransition(u.Status) {
		return domain.ErrInvalidTransition
	}
	n.Apply(u)
	return nil
}

func (m *MemoryNotificationRepository) CountByStatus(_ context.Context, status domain.Status) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MemoryNotificationRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	m.mu.RLock()
	matched := make([]*domain.Notification, 0)
	for _, n := range m.notifications {
		if n.UserID == userID {
			clone := *n
			matched = append(matched, &clone)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*domain.Notification{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Len returns the number of stored records.
func (m *MemoryNotificationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

var _ NotificationRepository = (*MemoryNotificationRepository)(nil)
