// Package history exposes the audit trail of completed renames and
// duplicate removals.
package history

import (
	"context"

	"medio/src/media"
)

// Store is the read side of the audit trail.
type Store interface {
	Recent(ctx context.Context, limit int) ([]media.HistoryEntry, error)
}

// Service answers queries about past pipeline outcomes.
type Service struct {
	store Store
}

// NewService creates a new history service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Recent returns the newest entries, most recent first. A non-positive
// limit falls back to a sane page size.
func (s *Service) Recent(ctx context.Context, limit int) ([]media.HistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.Recent(ctx, limit)
}
