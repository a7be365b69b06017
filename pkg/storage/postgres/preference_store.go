package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbantransit/notify/pkg/pg"
	"github.com/urbantransit/notify/pkg/preference"
)

// PreferenceStore persists per-user delivery preferences.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore creates a PreferenceStore backed by the given pool.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

var _ preference.Store = (*PreferenceStore)(nil)

const preferenceColumns = `user_id, email_enabled, email_address, sms_enabled, phone_number,
	push_enabled, push_tokens, webhook_enabled, webhook_url,
	quiet_hours_start, quiet_hours_end, updated_at`

// GetOrCreate returns the user's preference, inserting the default
// (email only) row on first access.
func (s *PreferenceStore) GetOrCreate(ctx context.Context, userID string) (*preference.Preference, error) {
	if userID == "" {
		return nil, preference.ErrUserIDRequired
	}

	pref, err := s.get(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if !pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("select preference: %w", err)
	}

	def := preference.Default(userID)
	def.UpdatedAt = time.Now()
	if def.PushTokens == nil {
		def.PushTokens = []string{}
	}

	query := `
		INSERT INTO user_notification_preference
			(user_id, email_enabled, email_address, sms_enabled, phone_number,
			 push_enabled, push_tokens, webhook_enabled, webhook_url,
			 quiet_hours_start, quiet_hours_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		def.UserID, def.EmailEnabled, def.EmailAddress, def.SMSEnabled, def.PhoneNumber,
		def.PushEnabled, def.PushTokens, def.WebhookEnabled, def.WebhookURL,
		nil, nil, def.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert default preference: %w", err)
	}

	// Re-read instead of returning def: a concurrent writer may have won
	// the insert race with different values.
	pref, err = s.get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("select preference: %w", err)
	}
	return pref, nil
}

// Save upserts the user's preference.
func (s *PreferenceStore) Save(ctx context.Context, pref preference.Preference) error {
	if pref.UserID == "" {
		return preference.ErrUserIDRequired
	}
	pref.UpdatedAt = time.Now()
	if pref.PushTokens == nil {
		pref.PushTokens = []string{}
	}

	var start, end *int
	if pref.QuietHours != nil {
		st, en := int(pref.QuietHours.Start), int(pref.QuietHours.End)
		start, end = &st, &en
	}

	query := `
		INSERT INTO user_notification_preference
			(user_id, email_enabled, email_address, sms_enabled, phone_number,
			 push_enabled, push_tokens, webhook_enabled, webhook_url,
			 quiet_hours_start, quiet_hours_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			email_address = EXCLUDED.email_address,
			sms_enabled = EXCLUDED.sms_enabled,
			phone_number = EXCLUDED.phone_number,
			push_enabled = EXCLUDED.push_enabled,
			push_tokens = EXCLUDED.push_tokens,
			webhook_enabled = EXCLUDED.webhook_enabled,
			webhook_url = EXCLUDED.webhook_url,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		pref.UserID, pref.EmailEnabled, pref.EmailAddress, pref.SMSEnabled, pref.PhoneNumber,
		pref.PushEnabled, pref.PushTokens, pref.WebhookEnabled, pref.WebhookURL,
		start, end, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func (s *PreferenceStore) get(ctx context.Context, userID string) (*preference.Preference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM user_notification_preference WHERE user_id = $1`

	var (
		pref       preference.Preference
		start, end *int
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&pref.UserID, &pref.EmailEnabled, &pref.EmailAddress, &pref.SMSEnabled, &pref.PhoneNumber,
		&pref.PushEnabled, &pref.PushTokens, &pref.WebhookEnabled, &pref.WebhookURL,
		&start, &end, &pref.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if start != nil && end != nil {
		pref.QuietHours = &preference.QuietHours{
			Start: preference.TimeOfDay(*start),
			End:   preference.TimeOfDay(*end),
		}
	}
	return &pref, nil
}
