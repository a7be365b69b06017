package sender

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrSenderNotConfigured is returned by Registry.Get when no sender is
	// registered for a channel type. Callers treat this as a terminal
	// condition, the same way a missing target address is handled.
	ErrSenderNotConfigured = errors.New("sender not configured for channel type")
	// ErrEmptyTarget is returned when a sender is invoked without a target.
	ErrEmptyTarget = errors.New("target is required")
)

// Sender delivers one message to one target over a single channel.
// The boolean reports delivery outcome; an error carries the failure
// detail. A false result with a nil error still counts as a failure.
type Sender interface {
	Send(ctx context.Context, target, title, body string) (bool, error)
}

// Func adapts a plain function to the Sender interface.
type Func func(ctx context.Context, target, title, body string) (bool, error)

func (f Func) Send(ctx context.Context, target, title, body string) (bool, error) {
	return f(ctx, target, title, body)
}

// Registry holds the configured senders keyed by channel type.
// Absence of a key is a first-class "sender not configured" condition.
type Registry struct {
	senders map[string]Sender
	mu      sync.RWMutex
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{
		senders: make(map[string]Sender),
	}
}

// Register binds a sender to a channel type, replacing any previous one.
// Nil senders are ignored.
func (r *Registry) Register(channelType string, s Sender) {
	if s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.senders[channelType] = s
}

// Get returns the sender for a channel type.
func (r *Registry) Get(channelType string) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.senders[channelType]
	if !ok {
		return nil, ErrSenderNotConfigured
	}

	return s, nil
}
