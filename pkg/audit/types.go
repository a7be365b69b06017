package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action tags recorded by the delivery engine.
const (
	ActionNotificationCreated = "NOTIFICATION_CREATED"
	ActionNotificationRead    = "NOTIFICATION_READ"
	ActionChannelSuccess      = "CHANNEL_SUCCESS"
	ActionChannelRetry        = "CHANNEL_RETRY_SCHEDULED"
	ActionChannelFailed       = "CHANNEL_FAILED"
)

// ErrEntryValidation is returned when an entry misses required fields.
var ErrEntryValidation = errors.New("audit entry validation failed")

// Entry is a single immutable audit record tied to a notification.
// Entries are append-only: never mutated, never deleted.
type Entry struct {
	ID             uuid.UUID      `json:"id"`
	NotificationID uuid.UUID      `json:"notification_id"`
	Action         string         `json:"action"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks that the entry has all required fields.
func (e *Entry) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEntryValidation)
	}
	if e.NotificationID == uuid.Nil {
		return fmt.Errorf("%w: notification ID is required", ErrEntryValidation)
	}
	return nil
}

// Option applies configuration to an Entry during creation.
type Option func(*Entry)

// WithMetadata attaches a single metadata key/value to the entry.
func WithMetadata(key string, value any) Option {
	return func(e *Entry) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithMetadataMap merges the given map into the entry's metadata.
func WithMetadataMap(md map[string]any) Option {
	return func(e *Entry) {
		if len(md) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			e.Metadata[k] = v
		}
	}
}
