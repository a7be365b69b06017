package audit

import (
	"context"

	"github.com/google/uuid"
)

// Storage persists audit entries. Implementations must be append-only:
// Append never overwrites and there is no delete operation.
type Storage interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry Entry) error

	// ListByNotification returns all entries for a notification in
	// append order.
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]Entry, error)
}
