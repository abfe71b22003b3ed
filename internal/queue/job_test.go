package queue_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/queue"
)

func TestEncode_WireShape(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	payload, err := queue.Encode(queue.Job{NotificationID: "abc", EnqueuedAt: at, RetryCount: 2})
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatal(err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 flat fields, got %v", fields)
	}
	if fields["notification_id"] != "abc" {
		t.Fatalf("unexpected notification_id: %v", fields["notification_id"])
	}
	if fields["timestamp"] != "2026-03-04T05:06:07Z" {
		t.Fatalf("unexpected timestamp: %v", fields["timestamp"])
	}
	if fields["retry_count"] != float64(2) {
		t.Fatalf("unexpected retry_count: %v", fields["retry_count"])
	}
}

func TestDecode_AcceptsNaiveTimestamp(t *testing.T) {
	job, err := queue.Decode([]byte(`{"notification_id":"n1","timestamp":"2026-03-04T05:06:07.123456","retry_count":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.NotificationID != "n1" || job.RetryCount != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.EnqueuedAt.Year() != 2026 || job.EnqueuedAt.Nanosecond() != 123456000 {
		t.Fatalf("unexpected timestamp: %v", job.EnqueuedAt)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{{{`,
		"missing id":       `{"timestamp":"2026-03-04T05:06:07Z","retry_count":0}`,
		"negative retries": `{"notification_id":"n1","retry_count":-1}`,
		"retry as string":  `{"notification_id":"n1","retry_count":"one"}`,
		"unparseable time": `{"notification_id":"n1","timestamp":"yesterday"}`,
		"array not object": `["n1", 0]`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := queue.Decode([]byte(payload))
			if !errors.Is(err, domain.ErrMalformedJob) {
				t.Fatalf("expected ErrMalformedJob, got %v", err)
			}
		})
	}
}

func TestJob_RetryIsAFreshCopy(t *testing.T) {
	first := queue.NewJob("n1")
	second := first.Retry()

	if first.RetryCount != 0 {
		t.Fatalf("original job mutated: %+v", first)
	}
	if second.RetryCount != 1 || second.NotificationID != "n1" {
		t.Fatalf("unexpected retry job: %+v", second)
	}
	if second.EnqueuedAt.Before(first.EnqueuedAt) {
		t.Fatal("retry job must be stamped at re-enqueue time")
	}
}
