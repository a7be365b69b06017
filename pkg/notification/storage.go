package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListOptions provides filtering and pagination for listing notifications.
type ListOptions struct {
	Limit    int      // Maximum number of notifications to return (0 = no limit)
	Offset   int      // Number of notifications to skip for pagination
	Statuses []Status // If specified, only return notifications in these statuses
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification stores a new notification.
	CreateNotification(ctx context.Context, n *Notification) error

	// GetNotification retrieves a notification by id without its channels.
	GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error)

	// SaveNotification persists the notification's mutable fields.
	SaveNotification(ctx context.Context, n *Notification) error

	// ListByUser returns a user's notifications, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// ListPendingDue returns notifications with status PENDING whose
	// scheduled time is unset or has arrived.
	ListPendingDue(ctx context.Context, now time.Time) ([]Notification, error)

	// CountUnread returns the number of the user's notifications whose
	// status is not READ.
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ChannelStore handles channel persistence. The channel row is the unit
// of mutual exclusion for delivery: ClaimChannel is a compare-and-swap
// on the status field so the inline dispatch path and the retry sweep
// can race without double-sending.
type ChannelStore interface {
	// CreateChannel stores a new channel record.
	CreateChannel(ctx context.Context, ch *Channel) error

	// GetChannel retrieves a channel by id.
	GetChannel(ctx context.Context, id uuid.UUID) (*Channel, error)

	// ListChannels returns all channels of a notification in creation order.
	ListChannels(ctx context.Context, notificationID uuid.UUID) ([]Channel, error)

	// SaveChannel persists the channel's mutable fields. Implementations
	// must reject writes to channels whose stored state is terminal.
	SaveChannel(ctx context.Context, ch *Channel) error

	// ClaimChannel atomically moves a PENDING or RETRYING channel to
	// SENDING, stamping LastAttemptAt and clearing NextRetryAt. It
	// returns ErrChannelNotClaimable when the channel is terminal or
	// already claimed.
	ClaimChannel(ctx context.Context, id uuid.UUID, now time.Time) (*Channel, error)

	// ListRetryDue returns channels with status RETRYING whose retry
	// time has arrived.
	ListRetryDue(ctx context.Context, now time.Time) ([]Channel, error)
}
