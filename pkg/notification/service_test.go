package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbantransit/notify/pkg/audit"
	"github.com/urbantransit/notify/pkg/notification"
	"github.com/urbantransit/notify/pkg/preference"
	"github.com/urbantransit/notify/pkg/sender"
	"github.com/urbantransit/notify/pkg/template"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type testEnv struct {
	svc      *notification.Service
	store    *notification.MemoryStore
	prefs    *preference.MemoryStore
	tpls     *template.MemoryStore
	registry *sender.Registry
	auditLog *audit.MemoryStorage
	clock    *fakeClock
}

func newTestEnv(t *testing.T, opts ...notification.ServiceOption) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    notification.NewMemoryStore(),
		prefs:    preference.NewMemoryStore(),
		tpls:     template.NewMemoryStore(),
		registry: sender.NewRegistry(),
		auditLog: audit.NewMemoryStorage(),
		clock:    newFakeClock(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)),
	}

	base := []notification.ServiceOption{
		notification.WithClock(env.clock.Now),
		notification.WithAuditLogger(audit.NewLogger(env.auditLog, audit.WithClock(env.clock.Now))),
	}

	env.svc = notification.NewService(
		env.store, env.store, env.prefs, env.tpls, env.registry,
		append(base, opts...)...,
	)
	return env
}

func (e *testEnv) setPreference(t *testing.T, pref preference.Preference) {
	t.Helper()
	require.NoError(t, e.prefs.Save(context.Background(), pref))
}

func (e *testEnv) channels(t *testing.T, id uuid.UUID) []notification.Channel {
	t.Helper()
	channels, err := e.store.ListChannels(context.Background(), id)
	require.NoError(t, err)
	return channels
}

func (e *testEnv) auditActions(t *testing.T, id uuid.UUID) []string {
	t.Helper()
	entries, err := e.auditLog.ListByNotification(context.Background(), id)
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, entry := range entries {
		actions[i] = entry.Action
	}
	return actions
}

func alwaysOK() sender.Sender {
	return sender.Func(func(ctx context.Context, target, title, body string) (bool, error) {
		return true, nil
	})
}

func alwaysFail(err error) sender.Sender {
	return sender.Func(func(ctx context.Context, target, title, body string) (bool, error) {
		return false, err
	})
}

func TestService_Send_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-1",
		EmailEnabled: true,
		EmailAddress: "user-1@example.com",
	})

	var gotTarget, gotTitle string
	env.registry.Register(string(notification.ChannelTypeEmail),
		sender.Func(func(ctx context.Context, target, title, body string) (bool, error) {
			gotTarget, gotTitle = target, title
			return true, nil
		}))

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-1",
		Title:    "Ride update",
		Body:     "Your driver has arrived.",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.StatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, "user-1@example.com", gotTarget)
	assert.Equal(t, "Ride update", gotTitle)

	require.Len(t, n.Channels, 1)
	ch := n.Channels[0]
	assert.Equal(t, notification.ChannelStatusSuccess, ch.Status)
	assert.Zero(t, ch.RetryCount)
	assert.Nil(t, ch.NextRetryAt)
	require.NotNil(t, ch.LastAttemptAt)

	assert.Equal(t,
		[]string{audit.ActionNotificationCreated, audit.ActionChannelSuccess},
		env.auditActions(t, n.ID))
}

func TestService_Send_RetriesUntilFailed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-2",
		EmailEnabled: true,
		EmailAddress: "user-2@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail),
		alwaysFail(errors.New("smtp unavailable")))

	start := env.clock.Now()

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-2",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	// First attempt consumed inline: retry scheduled 5 minutes out.
	require.Len(t, n.Channels, 1)
	ch := n.Channels[0]
	assert.Equal(t, notification.ChannelStatusRetrying, ch.Status)
	assert.Equal(t, 1, ch.RetryCount)
	require.NotNil(t, ch.NextRetryAt)
	assert.Equal(t, start.Add(5*time.Minute), *ch.NextRetryAt)
	assert.Equal(t, notification.ErrCodeDeliveryFailed, ch.ErrorCode)
	assert.Equal(t, notification.StatusSending, n.Status)

	// Second attempt: retry scheduled 10 minutes after it.
	env.clock.Advance(5 * time.Minute)
	require.NoError(t, env.svc.ProcessPending(context.Background()))

	ch = env.channels(t, n.ID)[0]
	assert.Equal(t, notification.ChannelStatusRetrying, ch.Status)
	assert.Equal(t, 2, ch.RetryCount)
	require.NotNil(t, ch.NextRetryAt)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), *ch.NextRetryAt)

	// Third attempt exhausts the budget.
	env.clock.Advance(10 * time.Minute)
	require.NoError(t, env.svc.ProcessPending(context.Background()))

	ch = env.channels(t, n.ID)[0]
	assert.Equal(t, notification.ChannelStatusFailed, ch.Status)
	assert.Equal(t, 3, ch.RetryCount)
	assert.Nil(t, ch.NextRetryAt)

	got, err := env.store.GetNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusFailed, got.Status)
	assert.Nil(t, got.SentAt)

	assert.Equal(t,
		[]string{
			audit.ActionNotificationCreated,
			audit.ActionChannelRetry,
			audit.ActionChannelRetry,
			audit.ActionChannelFailed,
		},
		env.auditActions(t, n.ID))
}

func TestService_Send_NoTarget(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.registry.Register(string(notification.ChannelTypeSMS), alwaysOK())

	// Default preference carries no phone number.
	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-3",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeSMS},
	})
	require.NoError(t, err)

	require.Len(t, n.Channels, 1)
	ch := n.Channels[0]
	assert.Equal(t, notification.ChannelStatusFailed, ch.Status)
	assert.Equal(t, notification.ErrCodeNoTarget, ch.ErrorCode)
	assert.Zero(t, ch.RetryCount, "a missing target must not consume retries")
	assert.Equal(t, notification.StatusFailed, n.Status)
}

func TestService_Send_SenderNotConfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-4",
		EmailEnabled: true,
		EmailAddress: "user-4@example.com",
	})

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-4",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	require.Len(t, n.Channels, 1)
	ch := n.Channels[0]
	assert.Equal(t, notification.ChannelStatusFailed, ch.Status)
	assert.Equal(t, notification.ErrCodeSenderNotConfigured, ch.ErrorCode)
	assert.Zero(t, ch.RetryCount)
}

func TestService_Send_PartialSuccessIsSent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-5",
		EmailEnabled: true,
		EmailAddress: "user-5@example.com",
		SMSEnabled:   true,
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())
	env.registry.Register(string(notification.ChannelTypeSMS), alwaysOK())

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID: "user-5",
		Title:  "t",
		Body:   "b",
		Channels: []notification.ChannelType{
			notification.ChannelTypeEmail,
			notification.ChannelTypeSMS, // no phone number configured
		},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.StatusSent, n.Status, "one successful channel is enough")
	require.NotNil(t, n.SentAt)

	byType := make(map[notification.ChannelType]notification.Channel)
	for _, ch := range n.Channels {
		byType[ch.Type] = ch
	}
	assert.Equal(t, notification.ChannelStatusSuccess, byType[notification.ChannelTypeEmail].Status)
	assert.Equal(t, notification.ChannelStatusFailed, byType[notification.ChannelTypeSMS].Status)
	assert.Equal(t, notification.ErrCodeNoTarget, byType[notification.ChannelTypeSMS].ErrorCode)
}

func TestService_Send_QuietHoursDefersDelivery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	// 23:30 UTC sits inside a 22:00-06:00 window.
	env.clock.Set(time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))

	env.setPreference(t, preference.Preference{
		UserID:       "user-6",
		EmailEnabled: true,
		EmailAddress: "user-6@example.com",
		QuietHours: &preference.QuietHours{
			Start: preference.NewTimeOfDay(22, 0),
			End:   preference.NewTimeOfDay(6, 0),
		},
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-6",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.StatusPending, n.Status)
	require.NotNil(t, n.ScheduledAt)
	assert.Equal(t, time.Date(2025, 3, 11, 6, 1, 0, 0, time.UTC), *n.ScheduledAt)
	assert.Equal(t, notification.ChannelStatusPending, n.Channels[0].Status)

	// Nothing to do before the window closes.
	require.NoError(t, env.svc.ProcessPending(context.Background()))
	got, err := env.store.GetNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, got.Status)

	// The sweep after 06:01 delivers it.
	env.clock.Advance(7 * time.Hour)
	require.NoError(t, env.svc.ProcessPending(context.Background()))

	got, err = env.store.GetNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)
}

func TestService_Send_OutsideQuietHoursDeliversImmediately(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-7",
		EmailEnabled: true,
		EmailAddress: "user-7@example.com",
		QuietHours: &preference.QuietHours{
			Start: preference.NewTimeOfDay(22, 0),
			End:   preference.NewTimeOfDay(6, 0),
		},
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	// Clock defaults to 14:00, outside the window.
	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "user-7",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, n.Status)
	assert.Nil(t, n.ScheduledAt)
}

func TestService_Send_ScheduledForLater(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-8",
		EmailEnabled: true,
		EmailAddress: "user-8@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	at := env.clock.Now().Add(2 * time.Hour)
	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:      "user-8",
		Title:       "t",
		Body:        "b",
		Channels:    []notification.ChannelType{notification.ChannelTypeEmail},
		ScheduledAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, n.Status)

	env.clock.Advance(2 * time.Hour)
	require.NoError(t, env.svc.ProcessPending(context.Background()))

	got, err := env.store.GetNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)
}

func TestService_Send_Template(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "user-9",
		EmailEnabled: true,
		EmailAddress: "user-9@example.com",
	})

	var gotTitle, gotBody string
	env.registry.Register(string(notification.ChannelTypeEmail),
		sender.Func(func(ctx context.Context, target, title, body string) (bool, error) {
			gotTitle, gotBody = title, body
			return true, nil
		}))

	require.NoError(t, env.tpls.Put(context.Background(), template.Template{
		Code:    "ride_arrived",
		Subject: "Hi {{name}}",
		Body:    "{{driver}} arrived at {{stop}}",
		Active:  true,
	}))

	_, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:       "user-9",
		TemplateCode: "ride_arrived",
		TemplateVariables: map[string]string{
			"name":   "Ada",
			"driver": "Marcus",
		},
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi Ada", gotTitle)
	assert.Equal(t, "Marcus arrived at {{stop}}", gotBody,
		"unresolved placeholders must pass through unchanged")
}

func TestService_Send_TemplateNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:       "user-10",
		TemplateCode: "missing",
		Channels:     []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
}

func TestService_Send_PreferenceGating(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, notification.WithPreferenceGating(true))
	env.setPreference(t, preference.Preference{
		UserID:       "user-11",
		EmailEnabled: true,
		EmailAddress: "user-11@example.com",
		SMSEnabled:   false,
		PhoneNumber:  "+15550100",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())
	env.registry.Register(string(notification.ChannelTypeSMS), alwaysOK())

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID: "user-11",
		Title:  "t",
		Body:   "b",
		Channels: []notification.ChannelType{
			notification.ChannelTypeEmail,
			notification.ChannelTypeSMS,
		},
	})
	require.NoError(t, err)

	byType := make(map[notification.ChannelType]notification.Channel)
	for _, ch := range n.Channels {
		byType[ch.Type] = ch
	}
	assert.Equal(t, notification.ChannelStatusSuccess, byType[notification.ChannelTypeEmail].Status)
	assert.Equal(t, notification.ChannelStatusFailed, byType[notification.ChannelTypeSMS].Status)
	assert.Equal(t, notification.ErrCodeChannelDisabled, byType[notification.ChannelTypeSMS].ErrorCode)

	// The opted-out channel fails before any attempt, and the failure
	// still lands in the audit trail.
	assert.Equal(t,
		[]string{audit.ActionNotificationCreated, audit.ActionChannelFailed, audit.ActionChannelSuccess},
		env.auditActions(t, n.ID))

	entries, err := env.auditLog.ListByNotification(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.ErrCodeChannelDisabled, entries[1].Metadata["errorCode"])
	assert.Equal(t, string(notification.ChannelTypeSMS), entries[1].Metadata["channelType"])
}

func TestService_Send_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     notification.SendRequest
		wantErr error
	}{
		{
			name: "missing user id",
			req: notification.SendRequest{
				Title:    "t",
				Body:     "b",
				Channels: []notification.ChannelType{notification.ChannelTypeEmail},
			},
			wantErr: notification.ErrUserIDRequired,
		},
		{
			name: "no channels",
			req: notification.SendRequest{
				UserID: "u",
				Title:  "t",
				Body:   "b",
			},
			wantErr: notification.ErrNoChannels,
		},
		{
			name: "invalid channel type",
			req: notification.SendRequest{
				UserID:   "u",
				Title:    "t",
				Body:     "b",
				Channels: []notification.ChannelType{"CARRIER_PIGEON"},
			},
			wantErr: notification.ErrInvalidChannelType,
		},
		{
			name: "empty message without template",
			req: notification.SendRequest{
				UserID:   "u",
				Channels: []notification.ChannelType{notification.ChannelTypeEmail},
			},
			wantErr: notification.ErrEmptyMessage,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			_, err := env.svc.Send(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_MarkAsRead(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "reader",
		EmailEnabled: true,
		EmailAddress: "reader@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID:   "reader",
		Title:    "t",
		Body:     "b",
		Channels: []notification.ChannelType{notification.ChannelTypeEmail},
	})
	require.NoError(t, err)

	got, err := env.svc.MarkAsRead(context.Background(), n.ID, "reader")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
	firstReadAt := *got.ReadAt

	// Repeated calls keep the original read timestamp.
	env.clock.Advance(time.Hour)
	again, err := env.svc.MarkAsRead(context.Background(), n.ID, "reader")
	require.NoError(t, err)
	require.NotNil(t, again.ReadAt)
	assert.Equal(t, firstReadAt, *again.ReadAt)

	actions := env.auditActions(t, n.ID)
	reads := 0
	for _, a := range actions {
		if a == audit.ActionNotificationRead {
			reads++
		}
	}
	assert.Equal(t, 1, reads)

	_, err = env.svc.MarkAsRead(context.Background(), n.ID, "intruder")
	require.ErrorIs(t, err, notification.ErrUnauthorized)

	_, err = env.svc.MarkAsRead(context.Background(), uuid.New(), "reader")
	require.ErrorIs(t, err, notification.ErrNotificationNotFound)
}

func TestService_UnreadCount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "counter",
		EmailEnabled: true,
		EmailAddress: "counter@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n, err := env.svc.Send(context.Background(), notification.SendRequest{
			UserID:   "counter",
			Title:    "t",
			Body:     "b",
			Channels: []notification.ChannelType{notification.ChannelTypeEmail},
		})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	count, err := env.svc.UnreadCount(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = env.svc.MarkAsRead(context.Background(), ids[0], "counter")
	require.NoError(t, err)

	count, err = env.svc.UnreadCount(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestService_GetUserNotifications(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "lister",
		EmailEnabled: true,
		EmailAddress: "lister@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	for i := 0; i < 5; i++ {
		env.clock.Advance(time.Minute)
		_, err := env.svc.Send(context.Background(), notification.SendRequest{
			UserID:   "lister",
			Title:    "t",
			Body:     "b",
			Channels: []notification.ChannelType{notification.ChannelTypeEmail},
		})
		require.NoError(t, err, "send %d", i)
	}

	list, err := env.svc.GetUserNotifications(context.Background(), "lister", notification.ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "newest first")
	}

	sent, err := env.svc.GetUserNotifications(context.Background(), "lister", notification.ListOptions{
		Statuses: []notification.Status{notification.StatusSent},
	})
	require.NoError(t, err)
	assert.Len(t, sent, 5)

	_, err = env.svc.GetUserNotifications(context.Background(), "", notification.ListOptions{})
	require.ErrorIs(t, err, notification.ErrUserIDRequired)
}

func TestService_Send_DeduplicatesChannels(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.setPreference(t, preference.Preference{
		UserID:       "dedupe",
		EmailEnabled: true,
		EmailAddress: "dedupe@example.com",
	})
	env.registry.Register(string(notification.ChannelTypeEmail), alwaysOK())

	n, err := env.svc.Send(context.Background(), notification.SendRequest{
		UserID: "dedupe",
		Title:  "t",
		Body:   "b",
		Channels: []notification.ChannelType{
			notification.ChannelTypeEmail,
			notification.ChannelTypeEmail,
		},
	})
	require.NoError(t, err)
	assert.Len(t, n.Channels, 1)
}
