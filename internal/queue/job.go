package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/notifyhub/notification-dispatch/internal/domain"
)

// Job is the minimal data placed on the queue.
// Workers fetch the full Notification from the store using the ID,
// keeping the queue lightweight and the record authoritative.
type Job struct {
	NotificationID string
	EnqueuedAt     time.Time
	RetryCount     int
}

// NewJob returns the first job of a lineage.
func NewJob(notificationID string) Job {
	return Job{NotificationID: notificationID, EnqueuedAt: time.Now().UTC()}
}

// Retry returns a fresh job for the same notification with the retry
// counter incremented. The receiver is left untouched.
func (j Job) Retry() Job {
	return Job{
		NotificationID: j.NotificationID,
		EnqueuedAt:     time.Now().UTC(),
		RetryCount:     j.RetryCount + 1,
	}
}

// wireJob is the flat key-value form shared by producers and consumers.
type wireJob struct {
	NotificationID string `json:"notification_id"`
	Timestamp      string `json:"timestamp"`
	RetryCount     int    `json:"retry_count"`
}

// Older producers wrote naive timestamps without a zone.
const naiveTimestamp = "2006-01-02T15:04:05.999999999"

// Encode serialises a job into its wire form.
func Encode(j Job) ([]byte, error) {
	return json.Marshal(wireJob{
		NotificationID: j.NotificationID,
		Timestamp:      j.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		RetryCount:     j.RetryCount,
	})
}

// Decode parses a wire payload. Any error wraps domain.ErrMalformedJob.
func Decode(payload []byte) (Job, error) {
	var w wireJob
	if err := json.Unmarshal(payload, &w); err != nil {
		return Job{}, fmt.Errorf("%w: %v", domain.ErrMalformedJob, err)
	}
	if w.NotificationID == "" {
		return Job{}, fmt.Errorf("%w: missing notification_id", domain.ErrMalformedJob)
	}
	if w.RetryCount < 0 {
		return Job{}, fmt.Errorf("%w: negative retry_count %d", domain.ErrMalformedJob, w.RetryCount)
	}

	j := Job{NotificationID: w.NotificationID, RetryCount: w.RetryCount}
	if w.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			ts, err = time.Parse(naiveTimestamp, w.Timestamp)
		}
		if err != nil {
			return Job{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrMalformedJob, w.Timestamp)
		}
		j.EnqueuedAt = ts.UTC()
	}
	return j, nil
}
