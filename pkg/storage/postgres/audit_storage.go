package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbantransit/notify/pkg/audit"
)

// AuditStorage persists the append-only notification log. Rows are
// never updated or deleted.
type AuditStorage struct {
	pool *pgxpool.Pool
}

// NewAuditStorage creates an AuditStorage backed by the given pool.
func NewAuditStorage(pool *pgxpool.Pool) *AuditStorage {
	return &AuditStorage{pool: pool}
}

var _ audit.Storage = (*AuditStorage)(nil)

func (s *AuditStorage) Append(ctx context.Context, entry audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notification_log (id, notification_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.NotificationID, entry.Action, entry.Metadata, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *AuditStorage) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]audit.Entry, error) {
	query := `
		SELECT id, notification_id, action, metadata, created_at
		FROM notification_log
		WHERE notification_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		if err := rows.Scan(&entry.ID, &entry.NotificationID, &entry.Action,
			&entry.Metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
