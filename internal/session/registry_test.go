package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0).UTC()} }

func TestRegistry_UnknownCallReturnsNoSession(t *testing.T) {
	r := NewMemoryRegistry(Options{})
	defer r.Close()

	assert.Equal(t, NoSession, r.SessionID("missing"))
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_SetThenGetRoundTrip(t *testing.T) {
	r := NewMemoryRegistry(Options{})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	assert.Equal(t, "S1", r.SessionID("C1"))

	// The engine may hand back a different id; the latest write wins.
	r.SetSessionID("C1", "S2")
	assert.Equal(t, "S2", r.SessionID("C1"))
}

func TestRegistry_SetSessionIDKeepsCallState(t *testing.T) {
	r := NewMemoryRegistry(Options{})
	defer r.Close()

	r.Put(CallSession{CallID: "C1", Phone: "+15550100", LastText: "hello"})
	r.SetSessionID("C1", "S1")

	s, ok := r.Get("C1")
	require.True(t, ok)
	assert.Equal(t, "+15550100", s.Phone)
	assert.Equal(t, "hello", s.LastText)
	assert.Equal(t, "S1", s.EngineSessionID)
}

func TestRegistry_EntriesExpireAfterTTL(t *testing.T) {
	clk := newClock()
	r := NewMemoryRegistry(Options{TTL: time.Minute, Now: clk.Now})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	clk.Advance(30 * time.Second)
	assert.Equal(t, "S1", r.SessionID("C1"))

	clk.Advance(31 * time.Second)
	assert.Equal(t, NoSession, r.SessionID("C1"))
	assert.Equal(t, int64(1), r.Stats().Evictions)
}

func TestRegistry_WriteRefreshesTTL(t *testing.T) {
	clk := newClock()
	r := NewMemoryRegistry(Options{TTL: time.Minute, Now: clk.Now})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	clk.Advance(50 * time.Second)
	r.SetSessionID("C1", "S1")
	clk.Advance(50 * time.Second)
	assert.Equal(t, "S1", r.SessionID("C1"))
}

func TestRegistry_EvictsOldestWhenFull(t *testing.T) {
	clk := newClock()
	r := NewMemoryRegistry(Options{MaxEntries: 2, Now: clk.Now})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	clk.Advance(time.Second)
	r.SetSessionID("C2", "S2")
	clk.Advance(time.Second)
	r.SetSessionID("C3", "S3")

	assert.Equal(t, NoSession, r.SessionID("C1"))
	assert.Equal(t, "S2", r.SessionID("C2"))
	assert.Equal(t, "S3", r.SessionID("C3"))

	st := r.Stats()
	assert.Equal(t, 2, st.Size)
	assert.Equal(t, int64(1), st.Evictions)
}

func TestRegistry_UpdatingExistingEntryDoesNotEvict(t *testing.T) {
	r := NewMemoryRegistry(Options{MaxEntries: 2})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	r.SetSessionID("C2", "S2")
	r.SetSessionID("C2", "S2b")

	assert.Equal(t, "S1", r.SessionID("C1"))
	assert.Equal(t, int64(0), r.Stats().Evictions)
}

func TestRegistry_DeleteExpired(t *testing.T) {
	clk := newClock()
	r := NewMemoryRegistry(Options{TTL: time.Minute, Now: clk.Now})
	defer r.Close()

	r.SetSessionID("C1", "S1")
	r.SetSessionID("C2", "S2")
	clk.Advance(2 * time.Minute)
	r.SetSessionID("C3", "S3")

	assert.Equal(t, 2, r.deleteExpired())
	assert.Equal(t, 1, r.Stats().Size)
}

func TestRegistry_JanitorStopsOnClose(t *testing.T) {
	r := NewMemoryRegistry(Options{CleanupInterval: time.Millisecond})
	r.SetSessionID("C1", "S1")
	r.Close()
	r.Close()
}

func TestRegistry_ConcurrentDistinctCalls(t *testing.T) {
	r := NewMemoryRegistry(Options{})
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i%26))
			r.SetSessionID(id+"-call", id+"-session")
			_ = r.SessionID(id + "-call")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, "A-session", r.SessionID("A-call"))
}
