package notification

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a notification aggregate.
// It is derived from the statuses of the notification's channels, except
// READ which records user acknowledgment.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSending Status = "SENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
	StatusRead    Status = "READ"
)

// ChannelType identifies a delivery channel.
type ChannelType string

const (
	ChannelTypeEmail   ChannelType = "EMAIL"
	ChannelTypeSMS     ChannelType = "SMS"
	ChannelTypePush    ChannelType = "PUSH"
	ChannelTypeWebhook ChannelType = "WEBHOOK"
)

// Valid checks whether the channel type is one of the supported values.
func (c ChannelType) Valid() bool {
	switch c {
	case ChannelTypeEmail, ChannelTypeSMS, ChannelTypePush, ChannelTypeWebhook:
		return true
	}
	return false
}

// ChannelStatus represents the state of one delivery lineage.
type ChannelStatus string

const (
	ChannelStatusPending  ChannelStatus = "PENDING"
	ChannelStatusSending  ChannelStatus = "SENDING"
	ChannelStatusSuccess  ChannelStatus = "SUCCESS"
	ChannelStatusRetrying ChannelStatus = "RETRYING"
	ChannelStatusFailed   ChannelStatus = "FAILED"
)

// Terminal reports whether the status is final. Terminal channels are
// never re-dispatched and never mutated again.
func (s ChannelStatus) Terminal() bool {
	return s == ChannelStatusSuccess || s == ChannelStatusFailed
}

// CanTransitionTo validates a state change against the channel state
// machine: PENDING -> SENDING -> {SUCCESS | RETRYING | FAILED}, with
// RETRYING -> SENDING looping until retries are exhausted.
func (s ChannelStatus) CanTransitionTo(next ChannelStatus) bool {
	switch s {
	case ChannelStatusPending, ChannelStatusRetrying:
		return next == ChannelStatusSending
	case ChannelStatusSending:
		return next == ChannelStatusSuccess || next == ChannelStatusRetrying || next == ChannelStatusFailed
	}
	return false
}

// Channel error codes recorded on terminal failures.
const (
	ErrCodeNoTarget            = "NO_TARGET"
	ErrCodeSenderNotConfigured = "SENDER_NOT_CONFIGURED"
	ErrCodeDeliveryFailed      = "DELIVERY_FAILED"
	ErrCodeChannelDisabled     = "CHANNEL_DISABLED"
)

// Notification is one user-facing message. It owns 1..N channel records
// and is never physically deleted; audit history depends on retention.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Status      Status     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Channels    []Channel  `json:"channels,omitempty"`
}

// Channel is one delivery attempt lineage for one channel type within
// a notification.
type Channel struct {
	ID             uuid.UUID     `json:"id"`
	NotificationID uuid.UUID     `json:"notification_id"`
	Type           ChannelType   `json:"channel_type"`
	Status         ChannelStatus `json:"status"`
	RetryCount     int           `json:"retry_count"`
	LastAttemptAt  *time.Time    `json:"last_attempt_at,omitempty"`
	NextRetryAt    *time.Time    `json:"next_retry_at,omitempty"`
	ErrorCode      string        `json:"error_code,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// AggregateStatus derives a notification's status from its channels:
// any SUCCESS counts as SENT (partial success still reaches the user),
// no SUCCESS with at least one FAILED is FAILED, otherwise the
// notification stays PENDING until an attempt starts and SENDING while
// channels are in flight or awaiting retry.
func AggregateStatus(channels []Channel) Status {
	if len(channels) == 0 {
		return StatusPending
	}

	var anySuccess, anyFailed, anyAttempted bool
	for _, ch := range channels {
		switch ch.Status {
		case ChannelStatusSuccess:
			anySuccess = true
		case ChannelStatusFailed:
			anyFailed = true
		case ChannelStatusSending, ChannelStatusRetrying:
			anyAttempted = true
		}
	}

	switch {
	case anySuccess:
		return StatusSent
	case anyFailed:
		return StatusFailed
	case anyAttempted:
		return StatusSending
	default:
		return StatusPending
	}
}
