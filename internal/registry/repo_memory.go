package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for dev and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	owners     map[string]Owner
	properties map[string]Property
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		owners:     map[string]Owner{},
		properties: map[string]Property{},
	}
}

func (s *MemoryStore) ListOwners(_ context.Context, search string) ([]Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Owner, 0, len(s.owners))
	for _, o := range s.owners {
		if q != "" && !containsAny(q, o.Name, o.Email, o.Phone, o.Address) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetOwner(_ context.Context, id string) (Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[id]
	if !ok {
		return Owner{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) InsertOwner(_ context.Context, o Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[o.ID]; ok {
		return ErrConflict
	}
	s.owners[o.ID] = o
	return nil
}

func (s *MemoryStore) UpdateOwner(_ context.Context, o Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[o.ID]; !ok {
		return ErrNotFound
	}
	s.owners[o.ID] = o
	return nil
}

func (s *MemoryStore) DeleteOwner(_ context.Context, id string) ([]Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[id]; !ok {
		return nil, ErrNotFound
	}

	var removed []Property
	for pid, p := range s.properties {
		if p.OwnerID == id {
			removed = append(removed, p)
			delete(s.properties, pid)
		}
	}
	delete(s.owners, id)
	sortProperties(removed)
	return removed, nil
}

func (s *MemoryStore) ListProperties(_ context.Context, f PropertyFilter) ([]Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Property, 0, len(s.properties))
	for _, p := range s.properties {
		if f.OwnerID != "" && p.OwnerID != f.OwnerID {
			continue
		}
		if q != "" && !containsAny(q, p.Title, p.Description, p.Address) {
			continue
		}
		out = append(out, cloneProperty(p))
	}
	sortProperties(out)
	return out, nil
}

func (s *MemoryStore) GetProperty(_ context.Context, id string) (Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	return cloneProperty(p), nil
}

func (s *MemoryStore) InsertProperty(_ context.Context, p Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[p.OwnerID]; !ok {
		return ErrInvalidArgument
	}
	if _, ok := s.properties[p.ID]; ok {
		return ErrConflict
	}
	s.properties[p.ID] = cloneProperty(p)
	return nil
}

func (s *MemoryStore) UpdateProperty(_ context.Context, p Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[p.ID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.owners[p.OwnerID]; !ok {
		return ErrInvalidArgument
	}
	s.properties[p.ID] = cloneProperty(p)
	return nil
}

func (s *MemoryStore) DeleteProperty(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[id]; !ok {
		return ErrNotFound
	}
	delete(s.properties, id)
	return nil
}

func (s *MemoryStore) CountOwners(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.owners), nil
}

func (s *MemoryStore) CountProperties(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.properties), nil
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func sortProperties(ps []Property) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}

// cloneProperty detaches the Files slice so callers cannot mutate stored state.
func cloneProperty(p Property) Property {
	if p.Files != nil {
		p.Files = append([]File(nil), p.Files...)
	}
	return p
}
