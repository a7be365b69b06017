package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements Sender for local development. It saves every
// message as a JSON file to a directory instead of delivering it, so
// SMS and push channels can be exercised without provider accounts.
type DevSender struct {
	dir     string
	channel string
}

// NewDevSender creates a development sender that writes messages to dir,
// tagging each file with the channel name. The directory is created on
// first use.
func NewDevSender(dir, channel string) *DevSender {
	return &DevSender{dir: dir, channel: channel}
}

// devMessage is the on-disk shape of a captured message.
type devMessage struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Target    string `json:"target"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// Send writes the message to disk and reports success.
func (d *DevSender) Send(ctx context.Context, target, title, body string) (bool, error) {
	if target == "" {
		return false, ErrEmptyTarget
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	now := time.Now()
	msg := devMessage{
		Timestamp: now.Format(time.RFC3339),
		Channel:   d.channel,
		Target:    target,
		Title:     title,
		Body:      body,
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal message: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.json",
		now.Format("2006_01_02_150405.000000"),
		sanitizeFilename(d.channel),
		sanitizeFilename(target),
	)

	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0644); err != nil {
		return false, fmt.Errorf("failed to write message file: %w", err)
	}

	return true, nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash,
// underscore, or dot.
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe filename fragment.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}

	if s == "" {
		s = "message"
	}

	return strings.ToLower(s)
}
