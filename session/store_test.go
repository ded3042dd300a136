package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreLazyCreation(t *testing.T) {
	store := NewMemoryStore()
	assert.Equal(t, 0, store.Len())

	_, exists := store.Get("caller-1")
	assert.False(t, exists)

	s := store.GetOrCreate("caller-1")
	assert.NotNil(t, s)
	assert.Equal(t, "caller-1", s.CallerID)
	assert.Equal(t, 1, store.Len())

	// Same caller identifier returns the same session.
	again := store.GetOrCreate("caller-1")
	assert.Same(t, s, again)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	store.GetOrCreate("caller-1")

	assert.True(t, store.Delete("caller-1"))
	assert.False(t, store.Delete("caller-1"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreSweepEvictsOnlyIdleSessions(t *testing.T) {
	store := NewMemoryStore()

	stale := store.GetOrCreate("stale")
	stale.Lock()
	stale.LastUpdate = time.Now().Add(-10 * time.Minute)
	stale.Unlock()

	store.GetOrCreate("fresh")

	removed := store.Sweep(5 * time.Minute)
	assert.Equal(t, 1, removed)
	_, exists := store.Get("stale")
	assert.False(t, exists)
	_, exists = store.Get("fresh")
	assert.True(t, exists)
}

func TestMemoryStoreSweepSkipsRefreshedSession(t *testing.T) {
	store := NewMemoryStore()
	s := store.GetOrCreate("caller-1")

	s.Lock()
	s.LastUpdate = time.Now()
	s.Unlock()

	removed := store.Sweep(5 * time.Minute)
	assert.Equal(t, 0, removed)
}

func TestSessionSnapshotIsDeepCopy(t *testing.T) {
	store := NewMemoryStore()
	s := store.GetOrCreate("caller-1")

	s.Lock()
	s.ThreatScore = 40
	s.MentionedKeywords["fire"] = true
	s.CriticalInfo.Hazards = append(s.CriticalInfo.Hazards, "smoke everywhere")
	snap := s.Snapshot()
	s.Unlock()

	// Mutating the live session must not leak into the snapshot.
	s.Lock()
	s.MentionedKeywords["help"] = true
	s.CriticalInfo.Hazards = append(s.CriticalInfo.Hazards, "rocks")
	s.Unlock()

	assert.Equal(t, []string{"fire"}, snap.MentionedKeywords)
	assert.Equal(t, []string{"smoke everywhere"}, snap.CriticalInfo.Hazards)
	assert.Equal(t, 40, snap.ThreatScore)
}

func TestConcurrentTurnsOnSameKeyDoNotInterleave(t *testing.T) {
	store := NewMemoryStore()
	const workers = 8
	const increments = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				s := store.GetOrCreate("caller-1")
				s.Lock()
				s.ThreatScore++
				s.LastUpdate = time.Now()
				s.Unlock()
			}
		}()
	}
	wg.Wait()

	s, _ := store.Get("caller-1")
	s.Lock()
	defer s.Unlock()
	assert.Equal(t, workers*increments, s.ThreatScore)
}

func TestConcurrentDistinctCallers(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	callers := []string{"a", "b", "c", "d", "e"}
	for _, id := range callers {
		wg.Add(1)
		go func(callerID string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s := store.GetOrCreate(callerID)
				s.Lock()
				s.ThreatScore++
				s.Unlock()
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, len(callers), store.Len())
}
