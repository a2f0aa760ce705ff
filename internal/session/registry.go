// Package session correlates provider call identifiers with dialogue-engine
// sessions for the lifetime of a call.
package session

import (
	"sync"
	"time"
)

// NoSession is returned for calls the registry has never seen (or has expired).
const NoSession = ""

// CallSession is the per-call state carried between turns.
//
// EngineSessionID stays empty until the first successful engine exchange.
// Phone is captured on the first turn and held fixed afterwards.
// LastText is the most recent meaningful utterance; silent turns reuse it.
type CallSession struct {
	CallID          string
	EngineSessionID string
	Phone           string
	LastText        string
	UpdatedAt       time.Time
}

// Registry is the contract used by the turn orchestrator.
type Registry interface {
	// SessionID returns the engine session bound to callID, or NoSession.
	SessionID(callID string) string
	// SetSessionID binds sessionID to callID, creating the entry if needed.
	SetSessionID(callID, sessionID string)
	// Get returns the full call state. ok is false for unknown calls.
	Get(callID string) (CallSession, bool)
	// Put stores the full call state.
	Put(s CallSession)
}

// Options bound the registry. Zero values fall back to defaults.
type Options struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	out := o
	if out.TTL <= 0 {
		out.TTL = time.Hour
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = 10000
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

// Stats is a point-in-time view used for metrics.
type Stats struct {
	Size      int
	Evictions int64
}

// MemoryRegistry is a bounded, TTL-expiring in-memory Registry.
// Entries expire TTL after their last write; when MaxEntries is reached the
// least recently written entry is evicted.
type MemoryRegistry struct {
	mu        sync.Mutex
	opts      Options
	entries   map[string]CallSession
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryRegistry creates a registry. A positive CleanupInterval starts a
// janitor goroutine that must be stopped with Close.
func NewMemoryRegistry(opts Options) *MemoryRegistry {
	r := &MemoryRegistry{
		opts:    opts.withDefaults(),
		entries: make(map[string]CallSession),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if r.opts.CleanupInterval > 0 {
		go r.janitor(r.opts.CleanupInterval)
	} else {
		close(r.done)
	}
	return r
}

func (r *MemoryRegistry) SessionID(callID string) string {
	s, ok := r.Get(callID)
	if !ok {
		return NoSession
	}
	return s.EngineSessionID
}

func (r *MemoryRegistry) SetSessionID(callID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.live(callID)
	if !ok {
		s = CallSession{CallID: callID}
	}
	s.EngineSessionID = sessionID
	r.store(s)
}

func (r *MemoryRegistry) Get(callID string) (CallSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live(callID)
}

func (r *MemoryRegistry) Put(s CallSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(s)
}

// Stats reports the current size and the number of evicted entries.
func (r *MemoryRegistry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Size: len(r.entries), Evictions: r.evictions}
}

// Close stops the janitor. It is safe to call more than once.
func (r *MemoryRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// live returns the entry if present and not expired. Caller holds mu.
func (r *MemoryRegistry) live(callID string) (CallSession, bool) {
	s, ok := r.entries[callID]
	if !ok {
		return CallSession{}, false
	}
	if r.expired(s, r.opts.Now()) {
		delete(r.entries, callID)
		r.evictions++
		return CallSession{}, false
	}
	return s, true
}

// store writes s and enforces the size bound. Caller holds mu.
func (r *MemoryRegistry) store(s CallSession) {
	s.UpdatedAt = r.opts.Now()
	if _, exists := r.entries[s.CallID]; !exists && len(r.entries) >= r.opts.MaxEntries {
		r.evictOldest()
	}
	r.entries[s.CallID] = s
}

func (r *MemoryRegistry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, s := range r.entries {
		if oldestID == "" || s.UpdatedAt.Before(oldest) {
			oldestID, oldest = id, s.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(r.entries, oldestID)
		r.evictions++
	}
}

func (r *MemoryRegistry) expired(s CallSession, now time.Time) bool {
	return now.Sub(s.UpdatedAt) > r.opts.TTL
}

// deleteExpired removes all expired entries and returns how many were dropped.
func (r *MemoryRegistry) deleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.Now()
	count := 0
	for id, s := range r.entries {
		if r.expired(s, now) {
			delete(r.entries, id)
			count++
		}
	}
	r.evictions += int64(count)
	return count
}

func (r *MemoryRegistry) janitor(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.deleteExpired()
		case <-r.stop:
			return
		}
	}
}
