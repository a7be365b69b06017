package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urbantransit/notify/pkg/audit"
	"github.com/urbantransit/notify/pkg/logger"
	"github.com/urbantransit/notify/pkg/preference"
	"github.com/urbantransit/notify/pkg/sender"
)

// ProcessPending runs the two scheduler sweeps: due PENDING
// notifications are dispatched, then RETRYING channels whose retry time
// has arrived are re-attempted. A failure on one item is logged and
// must not stop the remaining items.
func (s *Service) ProcessPending(ctx context.Context) error {
	now := s.now()

	due, err := s.notifications.ListPendingDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list pending notifications: %w", err)
	}

	for i := range due {
		n := due[i]
		if err := s.dispatch(ctx, &n); err != nil {
			s.logger.ErrorContext(ctx, "failed to process pending notification",
				logger.NotificationID(n.ID),
				logger.Error(err))
		}
	}

	return s.processRetries(ctx, now)
}

// processRetries re-attempts channels whose retry time has arrived and
// recomputes each parent's aggregated status.
func (s *Service) processRetries(ctx context.Context, now time.Time) error {
	due, err := s.channels.ListRetryDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list retry-due channels: %w", err)
	}

	for i := range due {
		ch := due[i]

		n, err := s.notifications.GetNotification(ctx, ch.NotificationID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load parent notification for retry",
				slog.String("channel_id", ch.ID.String()),
				logger.Error(err))
			continue
		}

		if err := s.attemptChannel(ctx, n, &ch); err != nil {
			s.logger.ErrorContext(ctx, "retry attempt failed",
				slog.String("channel_id", ch.ID.String()),
				logger.ChannelType(string(ch.Type)),
				logger.Error(err))
			continue
		}

		if err := s.refreshStatus(ctx, n); err != nil {
			s.logger.ErrorContext(ctx, "failed to refresh notification status after retry",
				logger.NotificationID(n.ID),
				logger.Error(err))
		}
	}

	return nil
}

// dispatch drives every non-terminal channel of a notification through
// one delivery attempt, then recomputes the aggregate status. A
// channel's failure is isolated: it never prevents the notification's
// other channels from being attempted.
func (s *Service) dispatch(ctx context.Context, n *Notification) error {
	n.Status = StatusSending
	if err := s.notifications.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	channels, err := s.channels.ListChannels(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	for i := range channels {
		ch := &channels[i]
		if ch.Status.Terminal() {
			continue
		}

		if err := s.attemptChannel(ctx, n, ch); err != nil {
			s.logger.ErrorContext(ctx, "channel attempt failed",
				logger.NotificationID(n.ID),
				logger.ChannelType(string(ch.Type)),
				logger.Error(err))
		}
	}

	return s.refreshStatus(ctx, n)
}

// attemptChannel makes one delivery attempt for one channel. The claim
// is a compare-and-swap: if another worker already owns the channel, or
// it reached a terminal state meanwhile, the attempt is skipped. The
// returned error reports storage problems only; delivery outcome is
// recorded on the channel itself.
func (s *Service) attemptChannel(ctx context.Context, n *Notification, ch *Channel) error {
	claimed, err := s.channels.ClaimChannel(ctx, ch.ID, s.now())
	if errors.Is(err, ErrChannelNotClaimable) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim channel: %w", err)
	}
	*ch = *claimed

	pref, err := s.prefs.GetOrCreate(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve preference: %w", err)
	}

	target := targetFor(pref, ch.Type)
	if target == "" {
		return s.failChannel(ctx, n, ch, ErrCodeNoTarget,
			fmt.Sprintf("no %s target configured for user %s", ch.Type, n.UserID))
	}

	snd, err := s.senders.Get(string(ch.Type))
	if err != nil {
		if errors.Is(err, sender.ErrSenderNotConfigured) {
			return s.failChannel(ctx, n, ch, ErrCodeSenderNotConfigured,
				fmt.Sprintf("no sender configured for channel %s", ch.Type))
		}
		return err
	}

	ok, sendErr := s.deliver(ctx, snd, target, n)

	if ok && sendErr == nil {
		ch.Status = ChannelStatusSuccess
		ch.NextRetryAt = nil
		ch.ErrorCode = ""
		ch.ErrorMessage = ""
		if err := s.channels.SaveChannel(ctx, ch); err != nil {
			return fmt.Errorf("save channel: %w", err)
		}
		s.audit.MustLog(ctx, n.ID, audit.ActionChannelSuccess,
			audit.WithMetadata("channelType", string(ch.Type)))
		return nil
	}

	message := "sender reported failure"
	if sendErr != nil {
		message = sendErr.Error()
	}
	return s.handleChannelFailure(ctx, n, ch, message)
}

// deliver invokes the sender under the configured per-call timeout. The
// sender call is the only blocking operation on the delivery path and
// holds no locks while in flight.
func (s *Service) deliver(ctx context.Context, snd sender.Sender, target string, n *Notification) (bool, error) {
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	return snd.Send(ctx, target, n.Title, n.Body)
}

// handleChannelFailure books a transient delivery failure: the retry
// counter is incremented and the channel either waits for its next
// retry or fails terminally once the budget is exhausted.
func (s *Service) handleChannelFailure(ctx context.Context, n *Notification, ch *Channel, message string) error {
	ch.RetryCount++

	if ch.RetryCount < s.maxRetries {
		next := s.now().Add(s.backoff.NextInterval(ch.RetryCount))
		ch.Status = ChannelStatusRetrying
		ch.NextRetryAt = &next
		ch.ErrorCode = ErrCodeDeliveryFailed
		ch.ErrorMessage = message
		if err := s.channels.SaveChannel(ctx, ch); err != nil {
			return fmt.Errorf("save channel: %w", err)
		}
		s.audit.MustLog(ctx, n.ID, audit.ActionChannelRetry,
			audit.WithMetadata("channelType", string(ch.Type)),
			audit.WithMetadata("retryCount", ch.RetryCount),
			audit.WithMetadata("nextRetryAt", next))
		s.logger.InfoContext(ctx, "channel delivery failed, retry scheduled",
			logger.NotificationID(n.ID),
			logger.ChannelType(string(ch.Type)),
			logger.RetryCount(ch.RetryCount),
			slog.Time("next_retry_at", next))
		return nil
	}

	ch.Status = ChannelStatusFailed
	ch.NextRetryAt = nil
	ch.ErrorCode = ErrCodeDeliveryFailed
	ch.ErrorMessage = message
	if err := s.channels.SaveChannel(ctx, ch); err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	s.audit.MustLog(ctx, n.ID, audit.ActionChannelFailed,
		audit.WithMetadata("channelType", string(ch.Type)),
		audit.WithMetadata("errorCode", ch.ErrorCode))
	return nil
}

// failChannel marks a channel terminally failed without consuming a
// retry slot, used when no target is configured or no sender exists.
func (s *Service) failChannel(ctx context.Context, n *Notification, ch *Channel, code, message string) error {
	ch.Status = ChannelStatusFailed
	ch.NextRetryAt = nil
	ch.ErrorCode = code
	ch.ErrorMessage = message
	if err := s.channels.SaveChannel(ctx, ch); err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	s.audit.MustLog(ctx, n.ID, audit.ActionChannelFailed,
		audit.WithMetadata("channelType", string(ch.Type)),
		audit.WithMetadata("errorCode", code))
	return nil
}

// refreshStatus recomputes the notification's aggregate status from its
// channels and persists it. READ is sticky: aggregation never clobbers
// a user acknowledgment.
func (s *Service) refreshStatus(ctx context.Context, n *Notification) error {
	channels, err := s.channels.ListChannels(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	if n.ReadAt != nil {
		return nil
	}

	n.Status = AggregateStatus(channels)
	if n.Status == StatusSent && n.SentAt == nil {
		now := s.now()
		n.SentAt = &now
	}

	if err := s.notifications.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	return nil
}

// targetFor resolves the delivery target for a channel type from the
// user's preference: email address, phone number, push token list, or
// webhook URL.
func targetFor(pref *preference.Preference, ct ChannelType) string {
	switch ct {
	case ChannelTypeEmail:
		return pref.EmailAddress
	case ChannelTypeSMS:
		return pref.PhoneNumber
	case ChannelTypePush:
		// The push sender owns fan-out across the user's devices.
		return strings.Join(pref.PushTokens, ",")
	case ChannelTypeWebhook:
		return pref.WebhookURL
	}
	return ""
}
