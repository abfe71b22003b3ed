package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Type is the delivery channel for a notification.
type Type string

const (
	TypeEmail Type = "email"
	TypePush  Type = "push"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeEmail, TypePush:
		return true
	}
	return false
}

// DefaultSubject is used for emails submitted without a subject and as the
// push title when none is stored.
const DefaultSubject = "Notification"

// Status tracks the lifecycle of a notification.
//
//	pending ──► sent    (terminal)
//	   │
//	   └──────► failed  (terminal)
//
// A retryable send failure leaves the record pending; only the queue gains
// a new job.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransition reports whether a record may move from s to next.
// The pending self-loop is not a stored transition and is rejected here.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Notification is the durable record of a single delivery request.
type Notification struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Type         Type       `json:"type"`
	Recipient    string     `json:"recipient"`
	Subject      *string    `json:"subject"`
	Content      string     `json:"content"`
	Status       Status     `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at"`
}

// SubjectOrDefault returns the stored subject or DefaultSubject.
func (n *Notification) SubjectOrDefault() string {
	if n.Subject == nil || *n.Subject == "" {
		return DefaultSubject
	}
	return *n.Subject
}

// StatusUpdate carries the mutable fields of a record. SentAt must be set
// exactly when Status is sent; ErrorMessage nil clears the stored message.
type StatusUpdate struct {
	Status       Status
	ErrorMessage *string
	SentAt       *time.Time
}

// Validate checks the update is a legal target for a pending record.
func (u StatusUpdate) Validate() error {
	if !StatusPending.CanTransition(u.Status) {
		return ErrInvalidTransition
	}
	if (u.Status == StatusSent) != (u.SentAt != nil) {
		return ErrInvalidTransition
	}
	return nil
}

// MarkSent builds the update for a successful delivery.
func MarkSent(at time.Time) StatusUpdate {
	return StatusUpdate{Status: StatusSent, SentAt: &at}
}

// MarkFailed builds the update for a terminal failure.
func MarkFailed(msg string) StatusUpdate {
	return StatusUpdate{Status: StatusFailed, ErrorMessage: &msg}
}

// Apply copies the update onto n. Callers check CanTransition first.
func (n *Notification) Apply(u StatusUpdate) {
	n.Status = u.Status
	n.ErrorMessage = u.ErrorMessage
	n.SentAt = u.SentAt
}

// Column limits of the notifications table.
const (
	MaxRecipientLen = 255
	MaxSubjectLen   = 200
)

// CreateNotificationRequest is the inbound payload for a single notification.
type CreateNotificationRequest struct {
	UserID    string  `json:"user_id" validate:"required,uuid"`
	Type      Type    `json:"type" validate:"required,oneof=email push"`
	Recipient string  `json:"recipient" validate:"max=255"`
	Subject   *string `json:"subject,omitempty" validate:"omitempty,max=200"`
	Content   string  `json:"content" validate:"required"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether s has the basic local@domain.tld shape.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Validate checks the request shape and fills in the email subject default.
func (r *CreateNotificationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrInvalidUserID
	}
	switch r.Type {
	case TypeEmail:
		if !IsValidEmail(r.Recipient) {
			return ErrInvalidEmail
		}
		if r.Subject == nil || *r.Subject == "" {
			s := DefaultSubject
			r.Subject = &s
		}
	case TypePush:
		if r.Recipient == "" {
			return ErrInvalidRecipient
		}
	default:
		return ErrInvalidType
	}
	if r.Content == "" {
		return ErrInvalidContent
	}
	if utf8.RuneCountInString(r.Recipient) > MaxRecipientLen {
		return ErrRecipientTooLong
	}
	if r.Subject != nil && utf8.RuneCountInString(*r.Subject) > MaxSubjectLen {
		return ErrSubjectTooLong
	}
	return nil
}

// SendResult is returned synchronously by a submission. Status is never
// sent: delivery always happens asynchronously.
type SendResult struct {
	NotificationID string     `json:"notification_id"`
	Status         Status     `json:"status"`
	SentAt         *time.Time `json:"sent_at"`
	Message        string     `json:"message"`
}

// Stats is a read-only snapshot. Counts are queried independently and may
// be taken at slightly different instants.
type Stats struct {
	Pending       int   `json:"pending"`
	Sent          int   `json:"sent"`
	Failed        int   `json:"failed"`
	Total         int   `json:"total"`
	QueueLength   int64 `json:"queue_length"`
	WorkerRunning bool  `json:"worker_running"`
}
