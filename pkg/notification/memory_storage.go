package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of NotificationStore and
// ChannelStore. Suitable for development and testing; a single mutex
// serializes claims the way row locks do in a database-backed store.
type MemoryStore struct {
	notifications map[uuid.UUID]Notification
	channels      map[uuid.UUID]Channel
	byUser        map[string][]uuid.UUID
	byNotif       map[uuid.UUID][]uuid.UUID
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[uuid.UUID]Notification),
		channels:      make(map[uuid.UUID]Channel),
		byUser:        make(map[string][]uuid.UUID),
		byNotif:       make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.UserID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}

	stored := *n
	stored.Channels = nil
	s.notifications[n.ID] = stored
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n.ID)
	return nil
}

func (s *MemoryStore) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}

	out := n
	return &out, nil
}

func (s *MemoryStore) SaveNotification(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[n.ID]; !ok {
		return ErrNotificationNotFound
	}

	stored := *n
	stored.Channels = nil
	s.notifications[n.ID] = stored
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, id := range s.byUser[userID] {
		n := s.notifications[id]
		if len(opts.Statuses) > 0 && !containsStatus(opts.Statuses, n.Status) {
			continue
		}
		out = append(out, n)
	}

	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(out) {
		return []Notification{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(out) {
		end = len(out)
	}

	return out[start:end], nil
}

func (s *MemoryStore) ListPendingDue(ctx context.Context, now time.Time) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.Status != StatusPending {
			continue
		}
		if n.ScheduledAt != nil && n.ScheduledAt.After(now) {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (s *MemoryStore) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		if s.notifications[id].Status != StatusRead {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStore) CreateChannel(ctx context.Context, ch *Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[ch.NotificationID]; !ok {
		return ErrNotificationNotFound
	}

	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	if ch.Status == "" {
		ch.Status = ChannelStatusPending
	}

	s.channels[ch.ID] = *ch
	s.byNotif[ch.NotificationID] = append(s.byNotif[ch.NotificationID], ch.ID)
	return nil
}

func (s *MemoryStore) GetChannel(ctx context.Context, id uuid.UUID) (*Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return nil, ErrChannelNotFound
	}

	out := ch
	return &out, nil
}

func (s *MemoryStore) ListChannels(ctx context.Context, notificationID uuid.UUID) ([]Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byNotif[notificationID]
	out := make([]Channel, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.channels[id])
	}

	return out, nil
}

func (s *MemoryStore) SaveChannel(ctx context.Context, ch *Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.channels[ch.ID]
	if !ok {
		return ErrChannelNotFound
	}
	if stored.Status.Terminal() {
		return ErrChannelTerminal
	}

	s.channels[ch.ID] = *ch
	return nil
}

func (s *MemoryStore) ClaimChannel(ctx context.Context, id uuid.UUID, now time.Time) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[id]
	if !ok {
		return nil, ErrChannelNotFound
	}
	if !ch.Status.CanTransitionTo(ChannelStatusSending) {
		return nil, ErrChannelNotClaimable
	}

	ch.Status = ChannelStatusSending
	ch.LastAttemptAt = &now
	ch.NextRetryAt = nil
	s.channels[id] = ch

	out := ch
	return &out, nil
}

func (s *MemoryStore) ListRetryDue(ctx context.Context, now time.Time) ([]Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Channel
	for _, ch := range s.channels {
		if ch.Status != ChannelStatusRetrying {
			continue
		}
		if ch.NextRetryAt == nil || ch.NextRetryAt.After(now) {
			continue
		}
		out = append(out, ch)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func containsStatus(statuses []Status, status Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
