package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

const recordID = "3c9a6a1e-2b1f-4f0e-9b7e-5a4d3c2b1a00"

func newMockRepo(t *testing.T) (*pgNotificationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return &pgNotificationRepository{pool: mock}, mock
}

func TestPgUpdateStatus_CommitsWhilePending(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), recordID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateStatus(context.Background(), recordID, domain.MarkSent(time.Now().UTC()))
	assert.NoError(t, err)
}

func TestPgUpdateStatus_ZeroRows(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantErr error
	}{
		{"record already terminal", true, domain.ErrInvalidTransition},
		{"record missing", false, domain.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(`UPDATE notifications`).
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), recordID).
				WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(recordID).
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			err := repo.UpdateStatus(context.Background(), recordID, domain.MarkFailed("provider down"))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPgUpdateStatus_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), recordID).
		WillReturnError(errors.New("connection reset"))

	err := repo.UpdateStatus(context.Background(), recordID, domain.MarkFailed("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPgUpdateStatus_RejectsNonTerminalTarget(t *testing.T) {
	repo, _ := newMockRepo(t)
	err := repo.UpdateStatus(context.Background(), recordID, domain.StatusUpdate{Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

// Ids from foreign producers that are not UUIDs never hit the database.
func TestPg_NonUUIDIDIsNotFound(t *testing.T) {
	repo, _ := newMockRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.UpdateStatus(ctx, "abc", domain.MarkFailed("x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
