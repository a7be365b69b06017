package notification

import "errors"

var (
	// ErrNotificationNotFound is returned when looking up an unknown id.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrChannelNotFound is returned when looking up an unknown channel id.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrUnauthorized is returned when a caller operates on a notification
	// owned by another user.
	ErrUnauthorized = errors.New("notification does not belong to user")
	// ErrChannelNotClaimable is returned by ClaimChannel when the channel
	// is terminal or already being attempted by another worker.
	ErrChannelNotClaimable = errors.New("channel is not claimable")
	// ErrChannelTerminal is returned when saving a channel whose stored
	// state is already terminal. Terminal channels are never mutated.
	ErrChannelTerminal = errors.New("channel is in a terminal state")
	// ErrUserIDRequired is returned when a request is missing the user id.
	ErrUserIDRequired = errors.New("user ID is required")
	// ErrNoChannels is returned when a send request names no channel types.
	ErrNoChannels = errors.New("at least one channel type is required")
	// ErrInvalidChannelType is returned for unknown channel type values.
	ErrInvalidChannelType = errors.New("invalid channel type")
	// ErrEmptyMessage is returned when neither a title/body pair nor a
	// template code is supplied.
	ErrEmptyMessage = errors.New("title and body are required when no template is used")
)
