package channel_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-dispatch/internal/channel"
	"github.com/notifyhub/notification-dispatch/internal/domain"
)

func TestPushSender_Success(t *testing.T) {
	var got channel.PushRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := channel.NewPushSender(srv.URL, "secret", time.Second)
	err := s.Send(context.Background(), "tok-1", "Hi", "body")

	require.NoError(t, err)
	assert.Equal(t, channel.PushRequest{Token: "tok-1", Title: "Hi", Body: "body"}, got)
	assert.Equal(t, "key=secret", auth)
}

func TestPushSender_Non2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := channel.NewPushSender(srv.URL, "", time.Second)
	err := s.Send(context.Background(), "bad", "t", "b")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSend)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestPushSender_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	s := channel.NewPushSender(srv.URL, "", 20*time.Millisecond)
	err := s.Send(context.Background(), "tok", "t", "b")
	assert.ErrorIs(t, err, domain.ErrSend)
}

func TestPushSender_Unreachable(t *testing.T) {
	s := channel.NewPushSender("http://127.0.0.1:1", "", time.Second)
	err := s.Send(context.Background(), "tok", "t", "b")
	assert.ErrorIs(t, err, domain.ErrSend)
}

func TestEmailSender_CancelledContext(t *testing.T) {
	s := channel.NewEmailSender(channel.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "a@b.co", "s", "b")
	assert.ErrorIs(t, err, domain.ErrSend)
}

func TestEmailSender_RelayUnreachable(t *testing.T) {
	s := channel.NewEmailSender(channel.SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1,
		From:    "noreply@example.com",
		Timeout: 200 * time.Millisecond,
	})

	err := s.Send(context.Background(), "a@b.co", "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSend)
	assert.Contains(t, err.Error(), "email sending failed")
}

func TestThrottled_PassesThrough(t *testing.T) {
	var calls atomic.Int32
	next := channel.SenderFunc(func(ctx context.Context, r, s, b string) error {
		calls.Add(1)
		return nil
	})

	s := channel.NewThrottled(next, 100)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Send(context.Background(), "r", "s", "b"))
	}
	assert.EqualValues(t, 5, calls.Load())
}

func TestThrottled_ZeroRateIsUnwrapped(t *testing.T) {
	next := channel.SenderFunc(func(ctx context.Context, r, s, b string) error { return nil })
	s := channel.NewThrottled(next, 0)
	_, wrapped := s.(*channel.Throttled)
	assert.False(t, wrapped)
}

func TestThrottled_ContextCancelledWhileWaiting(t *testing.T) {
	next := channel.SenderFunc(func(ctx context.Context, r, s, b string) error { return nil })
	s := channel.NewThrottled(next, 1)

	// drain the single burst token
	require.NoError(t, s.Send(context.Background(), "r", "s", "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, "r", "s", "b")
	assert.ErrorIs(t, err, domain.ErrSend)
}

func TestThrottled_PropagatesSenderError(t *testing.T) {
	boom := errors.New("provider down")
	next := channel.SenderFunc(func(ctx context.Context, r, s, b string) error { return boom })

	err := channel.NewThrottled(next, 10).Send(context.Background(), "r", "s", "b")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Lookup(t *testing.T) {
	log := channel.NewLogSender("email", zap.NewNop())
	reg := channel.Registry{domain.TypeEmail: log}

	s, ok := reg.Lookup(domain.TypeEmail)
	require.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), "a@b.co", "s", "b"))

	_, ok = reg.Lookup(domain.TypePush)
	assert.False(t, ok)
}
