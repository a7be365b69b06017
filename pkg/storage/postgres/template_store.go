package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbantransit/notify/pkg/pg"
	"github.com/urbantransit/notify/pkg/template"
)

// TemplateStore persists the notification template catalog.
type TemplateStore struct {
	pool *pgxpool.Pool
}

// NewTemplateStore creates a TemplateStore backed by the given pool.
func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

var _ template.Store = (*TemplateStore)(nil)

// GetByCode returns the active template registered under code.
// Inactive templates are invisible here, so deactivating a template is
// enough to stop new sends from using it.
func (s *TemplateStore) GetByCode(ctx context.Context, code string) (*template.Template, error) {
	if code == "" {
		return nil, template.ErrTemplateCodeRequired
	}

	query := `
		SELECT id, code, subject, body, active, created_at
		FROM notification_template
		WHERE code = $1 AND active`

	var tpl template.Template
	err := s.pool.QueryRow(ctx, query, code).Scan(
		&tpl.ID, &tpl.Code, &tpl.Subject, &tpl.Body, &tpl.Active, &tpl.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, template.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("select template: %w", err)
	}
	return &tpl, nil
}

// Put upserts a template by code.
func (s *TemplateStore) Put(ctx context.Context, tpl template.Template) error {
	if tpl.Code == "" {
		return template.ErrTemplateCodeRequired
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notification_template (id, code, subject, body, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			active = EXCLUDED.active`

	_, err := s.pool.Exec(ctx, query, tpl.ID, tpl.Code, tpl.Subject, tpl.Body, tpl.Active, tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}
