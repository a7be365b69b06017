package template

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Suitable for development and testing.
type MemoryStore struct {
	templates map[string]Template // code -> template
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory template store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]Template),
	}
}

func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[code]
	if !ok || !tpl.Active {
		return nil, ErrTemplateNotFound
	}

	// Return a copy to prevent external mutation of stored data.
	out := tpl
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, tpl Template) error {
	if tpl.Code == "" {
		return ErrTemplateCodeRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now()
	}

	s.templates[tpl.Code] = tpl
	return nil
}
