package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/urbantransit/notify/pkg/audit"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Append(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStorage) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]audit.Entry, error) {
	args := m.Called(ctx, notificationID)
	if entries := args.Get(0); entries != nil {
		return entries.([]audit.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	logger := audit.NewLogger(storage, audit.WithClock(func() time.Time { return now }))

	notifID := uuid.New()

	require.NoError(t, logger.Log(ctx, notifID, audit.ActionNotificationCreated,
		audit.WithMetadata("channelType", "EMAIL"),
	))
	require.NoError(t, logger.Log(ctx, notifID, audit.ActionChannelSuccess))

	entries, err := storage.ListByNotification(ctx, notifID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, audit.ActionNotificationCreated, entries[0].Action)
	assert.Equal(t, "EMAIL", entries[0].Metadata["channelType"])
	assert.Equal(t, now, entries[0].CreatedAt)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)

	assert.Equal(t, audit.ActionChannelSuccess, entries[1].Action)
	assert.Nil(t, entries[1].Metadata)
}

func TestLogger_Log_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := audit.NewLogger(audit.NewMemoryStorage())

	err := logger.Log(ctx, uuid.Nil, audit.ActionNotificationRead)
	assert.ErrorIs(t, err, audit.ErrEntryValidation)

	err = logger.Log(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, audit.ErrEntryValidation)
}

type failingStorage struct{}

func (failingStorage) Append(ctx context.Context, entry audit.Entry) error {
	return errors.New("storage down")
}

func (failingStorage) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]audit.Entry, error) {
	return nil, nil
}

func TestLogger_MustLog_SwallowsStorageError(t *testing.T) {
	t.Parallel()

	logger := audit.NewLogger(failingStorage{})

	// Must not panic or propagate.
	logger.MustLog(context.Background(), uuid.New(), audit.ActionChannelFailed)
}

func TestLogger_Log_AppendsOncePerCall(t *testing.T) {
	t.Parallel()

	storage := new(mockStorage)
	storage.On("Append", mock.Anything, mock.MatchedBy(func(entry audit.Entry) bool {
		return entry.Action == audit.ActionChannelRetry
	})).Return(nil).Once()

	logger := audit.NewLogger(storage)
	require.NoError(t, logger.Log(context.Background(), uuid.New(), audit.ActionChannelRetry))

	storage.AssertExpectations(t)
}

func TestMemoryStorage_ListByNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := audit.NewMemoryStorage()

	first := uuid.New()
	second := uuid.New()

	for _, id := range []uuid.UUID{first, second, first} {
		require.NoError(t, storage.Append(ctx, audit.Entry{
			ID:             uuid.New(),
			NotificationID: id,
			Action:         audit.ActionChannelSuccess,
			CreatedAt:      time.Now(),
		}))
	}

	entries, err := storage.ListByNotification(ctx, first)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = storage.ListByNotification(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
