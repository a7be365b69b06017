package preference

import (
	"context"
	"time"
)

// Preference holds a user's durable notification settings: per-channel
// opt-ins, contact addresses, and an optional quiet-hours window.
type Preference struct {
	UserID         string      `json:"user_id"`
	EmailEnabled   bool        `json:"email_enabled"`
	EmailAddress   string      `json:"email_address,omitempty"`
	SMSEnabled     bool        `json:"sms_enabled"`
	PhoneNumber    string      `json:"phone_number,omitempty"`
	PushEnabled    bool        `json:"push_enabled"`
	PushTokens     []string    `json:"push_tokens,omitempty"`
	WebhookEnabled bool        `json:"webhook_enabled"`
	WebhookURL     string      `json:"webhook_url,omitempty"`
	QuietHours     *QuietHours `json:"quiet_hours,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Default returns the preference row created lazily on a user's first
// notification: email on, everything else off.
func Default(userID string) Preference {
	return Preference{
		UserID:       userID,
		EmailEnabled: true,
		UpdatedAt:    time.Now(),
	}
}

// Store handles preference persistence.
type Store interface {
	// GetOrCreate returns the user's preference, creating the default row
	// if none exists yet. Resolving never fails for an unknown user.
	GetOrCreate(ctx context.Context, userID string) (*Preference, error)

	// Save stores or replaces the user's preference row.
	Save(ctx context.Context, pref Preference) error
}
