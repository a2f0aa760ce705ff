package journal

import (
	"context"
	"sync"
)

// MemoryRepo keeps entries in process memory. It is the default when no
// database is configured, and is used by tests.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewMemoryRepo keeps at most max entries (oldest dropped first); max <= 0
// means unbounded.
func NewMemoryRepo(max int) *MemoryRepo { return &MemoryRepo{max: max} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if r.max > 0 && len(r.entries) > r.max {
		r.entries = append([]Entry(nil), r.entries[len(r.entries)-r.max:]...)
	}
	return nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ForCall returns the entries of one call in append order.
func (r *MemoryRepo) ForCall(callSid string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.CallSid == callSid {
			out = append(out, e)
		}
	}
	return out
}
