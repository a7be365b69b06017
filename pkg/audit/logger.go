package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logger records delivery engine actions against a Storage backend.
type Logger struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithLogger sets the slog logger used for storage failures.
func WithLogger(logger *slog.Logger) LoggerOption {
	return func(l *Logger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) LoggerOption {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates an audit logger backed by the given storage.
func NewLogger(storage Storage, opts ...LoggerOption) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Log appends an action record for the notification.
func (l *Logger) Log(ctx context.Context, notificationID uuid.UUID, action string, opts ...Option) error {
	entry := Entry{
		ID:             uuid.New(),
		NotificationID: notificationID,
		Action:         action,
		CreatedAt:      l.now(),
	}

	for _, opt := range opts {
		opt(&entry)
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	return l.storage.Append(ctx, entry)
}

// MustLog appends an action record and downgrades storage failures to a
// warning. Audit writes on the delivery path must not abort delivery.
func (l *Logger) MustLog(ctx context.Context, notificationID uuid.UUID, action string, opts ...Option) {
	if err := l.Log(ctx, notificationID, action, opts...); err != nil {
		l.logger.LogAttrs(ctx, slog.LevelWarn, "failed to append audit entry",
			slog.String("notification_id", notificationID.String()),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
