package store

import (
	"context"
	"sync"

	"youthsessions/internal/sessions/models"
)

// InMemoryStore is the development and test implementation.
type InMemoryStore struct {
	mu          sync.RWMutex
	byLocal     map[string]string
	byPartner   map[string]string
	counsellors map[string]Counsellor
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byLocal:     make(map[string]string),
		byPartner:   make(map[string]string),
		counsellors: make(map[string]Counsellor),
	}
}

func (s *InMemoryStore) SaveYouth(_ context.Context, y Youth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.byLocal[y.ID]; ok {
		delete(s.byPartner, previous)
	}
	s.byLocal[y.ID] = y.PartnerID
	s.byPartner[y.PartnerID] = y.ID
	return nil
}

func (s *InMemoryStore) SaveCounsellor(_ context.Context, c Counsellor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counsellors[c.ID] = c
	return nil
}

func (s *InMemoryStore) LocalIDsByPartnerID(_ context.Context, partnerIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(partnerIDs))
	for _, p := range partnerIDs {
		if local, ok := s.byPartner[p]; ok {
			out[p] = local
		}
	}
	return out, nil
}

func (s *InMemoryStore) PartnerIDsByLocalID(_ context.Context, localIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(localIDs))
	for _, l := range localIDs {
		if partner, ok := s.byLocal[l]; ok {
			out[l] = partner
		}
	}
	return out, nil
}

func (s *InMemoryStore) StructureForCounsellor(_ context.Context, counsellorID string) (models.Structure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counsellors[counsellorID]
	if !ok {
		return models.Structure{}, errCounsellorNotFound(counsellorID)
	}
	return models.Structure{ID: c.StructureID, Timezone: c.Timezone}, nil
}
