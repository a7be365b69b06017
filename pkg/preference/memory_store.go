package preference

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUserIDRequired is returned when saving a preference without a user id.
var ErrUserIDRequired = errors.New("user ID is required")

// MemoryStore is an in-memory implementation of the Store interface.
// Suitable for development and testing.
type MemoryStore struct {
	prefs map[string]Preference // userID -> preference
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]Preference),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*Preference, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pref, ok := s.prefs[userID]
	if !ok {
		pref = Default(userID)
		s.prefs[userID] = pref
	}

	// Return a copy to prevent external mutation of stored data.
	out := pref
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, pref Preference) error {
	if pref.UserID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pref.UpdatedAt.IsZero() {
		pref.UpdatedAt = time.Now()
	}

	s.prefs[pref.UserID] = pref
	return nil
}
