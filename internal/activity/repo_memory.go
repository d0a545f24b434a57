package activity

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory append-only repository.
// Used for tests and STORE_BACKEND=memory; contents are lost on restart.

type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
	byKey   map[string]int
	seq     int64
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byKey: map[string]int{}} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.IdempotencyKey != "" {
		if i, ok := r.byKey[e.IdempotencyKey]; ok {
			return r.entries[i], nil
		}
	}
	r.seq++
	e.Seq = r.seq
	r.entries = append(r.entries, e)
	if e.IdempotencyKey != "" {
		r.byKey[e.IdempotencyKey] = len(r.entries) - 1
	}
	return e, nil
}

func (r *MemoryRepo) Count(ctx context.Context, f Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter, offset, limit int) ([]Entry, error) {
	r.mu.Lock()
	matched := filterSorted(r.entries, f)
	r.mu.Unlock()
	return window(matched, offset, limit), nil
}

func (r *MemoryRepo) All(ctx context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}
