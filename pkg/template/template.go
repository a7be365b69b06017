package template

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTemplateNotFound is returned when no active template exists for a code.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateCodeRequired is returned when storing a template without a code.
	ErrTemplateCodeRequired = errors.New("template code is required")
)

// Template is a reusable message definition looked up by code.
// Subject and Body may contain {{variable}} placeholders.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Store handles template persistence.
type Store interface {
	// GetByCode returns the active template with the given code.
	// Inactive templates are not resolvable and yield ErrTemplateNotFound.
	GetByCode(ctx context.Context, code string) (*Template, error)

	// Put stores or replaces a template keyed by its code.
	Put(ctx context.Context, tpl Template) error
}
