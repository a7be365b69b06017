package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/urbantransit/notify/pkg/audit"
	"github.com/urbantransit/notify/pkg/backoff"
	"github.com/urbantransit/notify/pkg/logger"
	"github.com/urbantransit/notify/pkg/preference"
	"github.com/urbantransit/notify/pkg/sender"
	"github.com/urbantransit/notify/pkg/template"
)

// DefaultMaxRetries is the number of delivery retries a channel gets
// after its first failed attempt.
const DefaultMaxRetries = 3

// SendRequest describes one notification to deliver.
type SendRequest struct {
	UserID            string            `json:"user_id"`
	Title             string            `json:"title"`
	Body              string            `json:"body"`
	Channels          []ChannelType     `json:"channels"`
	TemplateCode      string            `json:"template_code,omitempty"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`
	ScheduledAt       *time.Time        `json:"scheduled_at,omitempty"`
	CorrelationID     string            `json:"correlation_id,omitempty"`
}

// Service orchestrates notification creation, preference resolution,
// channel fan-out, delivery, and retry bookkeeping.
type Service struct {
	notifications NotificationStore
	channels      ChannelStore
	prefs         preference.Store
	templates     template.Store
	senders       *sender.Registry
	audit         *audit.Logger
	logger        *slog.Logger

	maxRetries   int
	backoff      backoff.Strategy
	sendTimeout  time.Duration
	enforcePrefs bool
	now          func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the slog logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger replaces the default in-memory audit logger.
func WithAuditLogger(l *audit.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// WithMaxRetries overrides the retry budget per channel.
func WithMaxRetries(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff overrides the retry delay strategy.
func WithBackoff(strategy backoff.Strategy) ServiceOption {
	return func(s *Service) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithSendTimeout bounds each sender call. Zero disables the timeout.
func WithSendTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.sendTimeout = d
	}
}

// WithPreferenceGating makes explicit channel requests respect the
// user's opt-out flags: opted-out channels fail terminally with
// CHANNEL_DISABLED instead of being delivered. Off by default for
// compatibility with the source behavior, where an explicit API request
// always wins.
func WithPreferenceGating(enabled bool) ServiceOption {
	return func(s *Service) {
		s.enforcePrefs = enabled
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the delivery orchestrator.
func NewService(
	notifications NotificationStore,
	channels ChannelStore,
	prefs preference.Store,
	templates template.Store,
	senders *sender.Registry,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		notifications: notifications,
		channels:      channels,
		prefs:         prefs,
		templates:     templates,
		senders:       senders,
		audit:         audit.NewLogger(audit.NewMemoryStorage()),
		logger:        slog.Default(),
		maxRetries:    DefaultMaxRetries,
		backoff:       backoff.Default(),
		sendTimeout:   30 * time.Second,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send creates a notification with one channel record per requested
// channel type and dispatches it immediately unless it is scheduled for
// later or the user's quiet hours are open. Delivery failures never
// surface as an error here; they are visible only in the returned
// notification's status.
func (s *Service) Send(ctx context.Context, req SendRequest) (*Notification, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	now := s.now()

	pref, err := s.prefs.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve preference: %w", err)
	}

	title, body := req.Title, req.Body
	if req.TemplateCode != "" {
		tpl, err := s.templates.GetByCode(ctx, req.TemplateCode)
		if err != nil {
			return nil, fmt.Errorf("resolve template %q: %w", req.TemplateCode, err)
		}
		if tpl.Subject != "" {
			title = template.Render(tpl.Subject, req.TemplateVariables)
		}
		body = template.Render(tpl.Body, req.TemplateVariables)
	}

	scheduledAt := req.ScheduledAt
	if pref.QuietHours != nil && pref.QuietHours.Contains(now) {
		deferred := pref.QuietHours.NextEnd(now).Add(time.Minute)
		scheduledAt = &deferred
		s.logger.InfoContext(ctx, "user in quiet hours, deferring notification",
			logger.UserID(req.UserID),
			slog.Time("scheduled_at", deferred))
	}

	n := &Notification{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Title:       title,
		Body:        body,
		Status:      StatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
	}

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	requested := dedupeChannels(req.Channels)

	channelTypes := make([]string, 0, len(requested))
	for _, ct := range requested {
		channelTypes = append(channelTypes, string(ct))
	}

	meta := []audit.Option{audit.WithMetadata("channelTypes", channelTypes)}
	if req.CorrelationID != "" {
		meta = append(meta, audit.WithMetadata("correlationId", req.CorrelationID))
	}
	s.audit.MustLog(ctx, n.ID, audit.ActionNotificationCreated, meta...)

	for _, ct := range requested {
		ch := &Channel{
			ID:             uuid.New(),
			NotificationID: n.ID,
			Type:           ct,
			Status:         ChannelStatusPending,
			CreatedAt:      now,
		}

		// An explicitly requested channel the user opted out of fails
		// terminally before any attempt when gating is enabled.
		if s.enforcePrefs && !channelEnabled(pref, ct) {
			ch.Status = ChannelStatusFailed
			ch.ErrorCode = ErrCodeChannelDisabled
			ch.ErrorMessage = fmt.Sprintf("user opted out of %s notifications", ct)
		}

		if err := s.channels.CreateChannel(ctx, ch); err != nil {
			return nil, fmt.Errorf("create channel %s: %w", ct, err)
		}

		if ch.Status == ChannelStatusFailed {
			s.audit.MustLog(ctx, n.ID, audit.ActionChannelFailed,
				audit.WithMetadata("channelType", string(ct)),
				audit.WithMetadata("errorCode", ch.ErrorCode))
		}
	}

	if scheduledAt == nil || !scheduledAt.After(now) {
		if err := s.dispatch(ctx, n); err != nil {
			// The notification is persisted; the scheduler loop picks it
			// up again, so a dispatch-time storage error is not fatal to
			// the create call.
			s.logger.ErrorContext(ctx, "inline dispatch failed",
				logger.NotificationID(n.ID),
				logger.Error(err))
		}
	}

	return s.projection(ctx, n.ID)
}

// GetUserNotifications returns a page of the user's notifications,
// newest first.
func (s *Service) GetUserNotifications(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	return s.notifications.ListByUser(ctx, userID, opts)
}

// MarkAsRead records user acknowledgment of a notification. It is
// idempotent: the second call is a no-op that returns the same state.
func (s *Service) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID string) (*Notification, error) {
	n, err := s.notifications.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrUnauthorized
	}

	if n.ReadAt == nil {
		now := s.now()
		n.ReadAt = &now
		n.Status = StatusRead
		if err := s.notifications.SaveNotification(ctx, n); err != nil {
			return nil, fmt.Errorf("save notification: %w", err)
		}
		s.audit.MustLog(ctx, n.ID, audit.ActionNotificationRead)
	}

	return s.projection(ctx, n.ID)
}

// UnreadCount returns the number of the user's notifications not yet
// acknowledged. Delivery outcome is irrelevant: PENDING, SENDING, SENT
// and FAILED all count as unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}
	return s.notifications.CountUnread(ctx, userID)
}

// projection loads the notification with its channels attached.
func (s *Service) projection(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	channels, err := s.channels.ListChannels(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	n.Channels = channels

	return n, nil
}

func validateSendRequest(req SendRequest) error {
	if req.UserID == "" {
		return ErrUserIDRequired
	}
	if len(req.Channels) == 0 {
		return ErrNoChannels
	}
	for _, ct := range req.Channels {
		if !ct.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidChannelType, ct)
		}
	}
	if req.TemplateCode == "" && (req.Title == "" || req.Body == "") {
		return ErrEmptyMessage
	}
	return nil
}

func dedupeChannels(channels []ChannelType) []ChannelType {
	seen := make(map[ChannelType]bool, len(channels))
	out := make([]ChannelType, 0, len(channels))
	for _, ct := range channels {
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out
}

func channelEnabled(pref *preference.Preference, ct ChannelType) bool {
	switch ct {
	case ChannelTypeEmail:
		return pref.EmailEnabled
	case ChannelTypeSMS:
		return pref.SMSEnabled
	case ChannelTypePush:
		return pref.PushEnabled
	case ChannelTypeWebhook:
		return pref.WebhookEnabled
	}
	return false
}
