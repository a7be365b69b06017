package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbantransit/notify/pkg/notification"
	"github.com/urbantransit/notify/pkg/pg"
)

// Store is the PostgreSQL implementation of the notification and
// channel stores. Channel claims rely on conditional updates, so any
// number of workers can share one database.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var (
	_ notification.NotificationStore = (*Store)(nil)
	_ notification.ChannelStore      = (*Store)(nil)
)

const notificationColumns = `id, user_id, title, body, status, scheduled_at, sent_at, read_at, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Status,
		&n.ScheduledAt, &n.SentAt, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *notification.Notification) error {
	if n.UserID == "" {
		return notification.ErrUserIDRequired
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Status == "" {
		n.Status = notification.StatusPending
	}

	query := `
		INSERT INTO notification (id, user_id, title, body, status, scheduled_at, sent_at, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Title, n.Body, n.Status,
		n.ScheduledAt, n.SentAt, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification WHERE id = $1`

	n, err := scanNotification(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("select notification: %w", err)
	}
	return n, nil
}

func (s *Store) SaveNotification(ctx context.Context, n *notification.Notification) error {
	query := `
		UPDATE notification
		SET title = $2, body = $3, status = $4, scheduled_at = $5, sent_at = $6, read_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		n.ID, n.Title, n.Body, n.Status, n.ScheduledAt, n.SentAt, n.ReadAt)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, opts notification.ListOptions) ([]notification.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notification
		WHERE user_id = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC
		OFFSET $3`
	args := []any{userID, statusStrings(opts.Statuses), opts.Offset}

	if opts.Limit > 0 {
		query += ` LIMIT $4`
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *Store) ListPendingDue(ctx context.Context, now time.Time) ([]notification.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notification
		WHERE status = $1 AND (scheduled_at IS NULL OR scheduled_at <= $2)
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, notification.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND status <> $2`

	var count int
	if err := s.pool.QueryRow(ctx, query, userID, notification.StatusRead).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

const channelColumns = `id, notification_id, channel_type, status, retry_count,
	last_attempt_at, next_retry_at, error_code, error_message, created_at`

func scanChannel(row pgx.Row) (*notification.Channel, error) {
	var ch notification.Channel
	err := row.Scan(&ch.ID, &ch.NotificationID, &ch.Type, &ch.Status, &ch.RetryCount,
		&ch.LastAttemptAt, &ch.NextRetryAt, &ch.ErrorCode, &ch.ErrorMessage, &ch.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) CreateChannel(ctx context.Context, ch *notification.Channel) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	if ch.Status == "" {
		ch.Status = notification.ChannelStatusPending
	}

	query := `
		INSERT INTO notification_channel (id, notification_id, channel_type, status, retry_count,
			last_attempt_at, next_retry_at, error_code, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		ch.ID, ch.NotificationID, ch.Type, ch.Status, ch.RetryCount,
		ch.LastAttemptAt, ch.NextRetryAt, ch.ErrorCode, ch.ErrorMessage, ch.CreatedAt)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return notification.ErrNotificationNotFound
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, id uuid.UUID) (*notification.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM notification_channel WHERE id = $1`

	ch, err := scanChannel(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrChannelNotFound
		}
		return nil, fmt.Errorf("select channel: %w", err)
	}
	return ch, nil
}

func (s *Store) ListChannels(ctx context.Context, notificationID uuid.UUID) ([]notification.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM notification_channel
		WHERE notification_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []notification.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// SaveChannel updates a channel unless it already reached a terminal
// state. Terminal rows are immutable.
func (s *Store) SaveChannel(ctx context.Context, ch *notification.Channel) error {
	query := `
		UPDATE notification_channel
		SET status = $2, retry_count = $3, last_attempt_at = $4, next_retry_at = $5,
			error_code = $6, error_message = $7
		WHERE id = $1 AND status NOT IN ($8, $9)`

	tag, err := s.pool.Exec(ctx, query,
		ch.ID, ch.Status, ch.RetryCount, ch.LastAttemptAt, ch.NextRetryAt,
		ch.ErrorCode, ch.ErrorMessage,
		notification.ChannelStatusSuccess, notification.ChannelStatusFailed)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetChannel(ctx, ch.ID); err != nil {
			return err
		}
		return notification.ErrChannelTerminal
	}
	return nil
}

// ClaimChannel atomically moves a channel into SENDING. The conditional
// update is the unit of mutual exclusion between concurrent workers and
// the synchronous dispatch path.
func (s *Store) ClaimChannel(ctx context.Context, id uuid.UUID, now time.Time) (*notification.Channel, error) {
	query := `
		UPDATE notification_channel
		SET status = $2, last_attempt_at = $3, next_retry_at = NULL
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING ` + channelColumns

	ch, err := scanChannel(s.pool.QueryRow(ctx, query,
		id, notification.ChannelStatusSending, now,
		notification.ChannelStatusPending, notification.ChannelStatusRetrying))
	if err == nil {
		return ch, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("claim channel: %w", err)
	}

	// No row matched: either the channel does not exist or someone else
	// holds it.
	if _, err := s.GetChannel(ctx, id); err != nil {
		return nil, err
	}
	return nil, notification.ErrChannelNotClaimable
}

func (s *Store) ListRetryDue(ctx context.Context, now time.Time) ([]notification.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM notification_channel
		WHERE status = $1 AND next_retry_at <= $2
		ORDER BY next_retry_at`

	rows, err := s.pool.Query(ctx, query, notification.ChannelStatusRetrying, now)
	if err != nil {
		return nil, fmt.Errorf("list retry-due channels: %w", err)
	}
	defer rows.Close()

	var out []notification.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

func collectNotifications(rows pgx.Rows) ([]notification.Notification, error) {
	var out []notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func statusStrings(statuses []notification.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
