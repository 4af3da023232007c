// Package store persists session overlays. Overlays are the only session state
// owned locally; defaults for absent overlays are applied by callers.
package store

import (
	"context"
	"time"

	"youthsessions/internal/sessions/models"
)

// Store is implemented by every overlay backend.
type Store interface {
	Get(ctx context.Context, sessionID string) (models.OptionalOverlay, error)
	// Upsert writes the overlay last-write-wins. A nil ClosedAt never clears a stored closure.
	Upsert(ctx context.Context, overlay models.Overlay) error
	GetAllForStructure(ctx context.Context, structureID string) ([]models.Overlay, error)
	// GetMany returns the stored overlays among ids, keyed by session id.
	GetMany(ctx context.Context, sessionIDs []string) (map[string]models.Overlay, error)
	// CloseMany records closedAt on each listed session not already closed,
	// stamping modifiedAt and creating hidden overlays where none exist. It
	// returns how many were closed.
	CloseMany(ctx context.Context, structureID string, sessionIDs []string, closedAt, modifiedAt time.Time) (int, error)
}
