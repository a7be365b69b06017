package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultUnreadTTL = 5 * time.Minute

// CachedNotificationStore decorates a NotificationStore with a Redis
// read-through cache for unread counts. Writes that can change a
// user's unread count invalidate the cached value; cache failures are
// logged and the store falls back to the underlying count.
type CachedNotificationStore struct {
	NotificationStore

	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// CachedStoreOption configures a CachedNotificationStore.
type CachedStoreOption func(*CachedNotificationStore)

// WithUnreadTTL overrides the expiry of cached unread counts.
func WithUnreadTTL(ttl time.Duration) CachedStoreOption {
	return func(c *CachedNotificationStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(logger *slog.Logger) CachedStoreOption {
	return func(c *CachedNotificationStore) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCachedNotificationStore wraps store with a Redis unread-count
// cache. It panics if store or rdb is nil.
func NewCachedNotificationStore(store NotificationStore, rdb redis.UniversalClient, opts ...CachedStoreOption) *CachedNotificationStore {
	if store == nil {
		panic("notification: cached store requires an underlying store")
	}
	if rdb == nil {
		panic("notification: cached store requires a redis client")
	}

	c := &CachedNotificationStore{
		NotificationStore: store,
		rdb:               rdb,
		ttl:               defaultUnreadTTL,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func unreadKey(userID string) string {
	return "notify:unread:" + userID
}

// CountUnread returns the cached unread count when present, otherwise
// counts from the underlying store and caches the result.
func (c *CachedNotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	key := unreadKey(userID)

	val, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		count, parseErr := strconv.Atoi(val)
		if parseErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "unread count cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	count, err := c.NotificationStore.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	if err := c.rdb.Set(ctx, key, strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "unread count cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return count, nil
}

// CreateNotification invalidates the user's cached unread count after a
// successful create.
func (c *CachedNotificationStore) CreateNotification(ctx context.Context, n *Notification) error {
	if err := c.NotificationStore.CreateNotification(ctx, n); err != nil {
		return err
	}
	c.invalidate(ctx, n.UserID)
	return nil
}

// SaveNotification invalidates the user's cached unread count after a
// successful save, since a status change may move the notification in
// or out of the unread set.
func (c *CachedNotificationStore) SaveNotification(ctx context.Context, n *Notification) error {
	if err := c.NotificationStore.SaveNotification(ctx, n); err != nil {
		return err
	}
	c.invalidate(ctx, n.UserID)
	return nil
}

func (c *CachedNotificationStore) invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, unreadKey(userID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "unread count cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
}

var _ NotificationStore = (*CachedNotificationStore)(nil)
