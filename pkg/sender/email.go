package sender

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"
)

// ErrInvalidEmailConfig is returned when the Postmark sender is
// misconfigured.
var ErrInvalidEmailConfig = errors.New("invalid email sender config")

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailConfig holds Postmark credentials and the sender identity.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"`
	MessageTag           string `env:"EMAIL_MESSAGE_TAG" envDefault:"notification"`
}

type emailSender struct {
	client *postmark.Client
	config EmailConfig
}

// NewEmailSender creates a Postmark-backed email sender.
// All credentials are required; this enforces explicit configuration
// rather than silent failures in production.
func NewEmailSender(cfg EmailConfig) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidEmailConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidEmailConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidEmailConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidEmailConfig)
	}

	return &emailSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// Send delivers one message via Postmark's transactional API.
func (s *emailSender) Send(ctx context.Context, target, title, body string) (bool, error) {
	if target == "" {
		return false, ErrEmptyTarget
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.config.SenderEmail,
		To:       target,
		Subject:  title,
		TextBody: body,
		Tag:      s.config.MessageTag,
	})
	if err != nil {
		return false, err
	}
	if resp.ErrorCode > 0 {
		return false, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}

	return true, nil
}
