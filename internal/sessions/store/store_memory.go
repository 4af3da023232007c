package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"youthsessions/internal/sessions/models"
	platformstrings "youthsessions/pkg/platform/strings"
)

// InMemoryStore keeps overlays in a map. Used in tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	overlays map[string]models.Overlay
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{overlays: make(map[string]models.Overlay)}
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (models.OptionalOverlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overlays[sessionID]
	if !ok {
		return models.NoOverlay(), nil
	}
	return models.SomeOverlay(clone(o)), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, overlay models.Overlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := clone(overlay)
	if existing, ok := s.overlays[overlay.SessionID]; ok && stored.ClosedAt == nil {
		stored.ClosedAt = clone(existing).ClosedAt
	}
	s.overlays[overlay.SessionID] = stored
	return nil
}

// GetAllForStructure returns the structure's overlays ordered by session id.
func (s *InMemoryStore) GetAllForStructure(_ context.Context, structureID string) ([]models.Overlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Overlay
	for _, o := range s.overlays {
		if o.StructureID == structureID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *InMemoryStore) GetMany(_ context.Context, sessionIDs []string) (map[string]models.Overlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Overlay, len(sessionIDs))
	for _, id := range sessionIDs {
		if o, ok := s.overlays[id]; ok {
			out[id] = clone(o)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CloseMany(_ context.Context, structureID string, sessionIDs []string, closedAt, modifiedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for _, id := range platformstrings.DedupeAndTrim(sessionIDs) {
		o, ok := s.overlays[id]
		if ok && o.IsClosed() {
			continue
		}
		if !ok {
			o = models.Overlay{SessionID: id, StructureID: structureID}
		}
		at := closedAt
		o.ClosedAt = &at
		o.ModifiedAt = modifiedAt
		s.overlays[id] = o
		closed++
	}
	return closed, nil
}

func clone(o models.Overlay) models.Overlay {
	if o.ClosedAt != nil {
		at := *o.ClosedAt
		o.ClosedAt = &at
	}
	return o
}
