package session

import (
	"sort"
	"sync"
	"time"

	"emergency-triage-service/models"
)

// Session is the mutable per-caller conversational state. All fields are
// guarded by the session mutex; callers must hold the lock for the whole
// turn so duplicate deliveries for the same caller cannot interleave.
//
// Lock order: the store lock is always acquired before a session lock.
// Code holding a session lock must not call back into the store.
type Session struct {
	mu sync.Mutex

	CallerID           string
	ThreatScore        int
	MentionedKeywords  map[string]bool
	EscalationLevel    int
	ActiveThreats      map[string]bool
	History            []models.ConversationTurn
	CriticalInfo       models.CriticalInfo
	Escalation         models.EscalationState
	DispatchAuthorized bool
	CreatedAt          time.Time
	LastUpdate         time.Time
}

func newSession(callerID string) *Session {
	now := time.Now()
	return &Session{
		CallerID:          callerID,
		MentionedKeywords: make(map[string]bool),
		ActiveThreats:     make(map[string]bool),
		Escalation: models.EscalationState{
			Level:            models.EscalationNone,
			ConfirmedThreats: make(map[string]bool),
		},
		CreatedAt:  now,
		LastUpdate: now,
	}
}

// Lock acquires the per-session mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Snapshot returns a deep copy of the session for read-only inspection.
// The caller must hold the session lock.
func (s *Session) Snapshot() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		CallerID:           s.CallerID,
		ThreatScore:        s.ThreatScore,
		EscalationLevel:    s.EscalationLevel,
		MentionedKeywords:  sortedKeys(s.MentionedKeywords),
		ActiveThreats:      sortedKeys(s.ActiveThreats),
		ConversationTurns:  len(s.History),
		CriticalInfo:       s.CriticalInfo,
		Escalation:         s.Escalation,
		DispatchAuthorized: s.DispatchAuthorized,
		CreatedAt:          s.CreatedAt,
		LastUpdate:         s.LastUpdate,
	}
	snap.CriticalInfo.Hazards = append([]string(nil), s.CriticalInfo.Hazards...)
	snap.Escalation.ConfirmedThreats = copyStringSet(s.Escalation.ConfirmedThreats)
	snap.Escalation.Level = s.Escalation.ExternalLevel()
	snap.History = append([]models.ConversationTurn(nil), s.History...)
	return snap
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyStringSet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

// Store is the session-store abstraction owned by the host process and
// injected into the triage engine.
type Store interface {
	GetOrCreate(callerID string) *Session
	Get(callerID string) (*Session, bool)
	Delete(callerID string) bool
	Sweep(maxIdle time.Duration) int
	Len() int
}

// MemoryStore is the in-memory Store implementation. Sessions are volatile
// working memory, not the system of record.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for callerID, creating it lazily on the
// caller's first utterance.
func (m *MemoryStore) GetOrCreate(callerID string) *Session {
	m.mu.RLock()
	if s, exists := m.sessions[callerID]; exists {
		m.mu.RUnlock()
		return s
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, exists := m.sessions[callerID]; exists {
		return s
	}
	s := newSession(callerID)
	m.sessions[callerID] = s
	return s
}

// Get returns the session for callerID if it exists.
func (m *MemoryStore) Get(callerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[callerID]
	return s, exists
}

// Delete drops the session for callerID. Returns false if no session
// exists.
func (m *MemoryStore) Delete(callerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[callerID]; !exists {
		return false
	}
	delete(m.sessions, callerID)
	return true
}

// Sweep deletes every session idle for longer than maxIdle and returns the
// number of sessions removed. Each candidate is checked under its own lock
// so the sweep cannot race with an in-flight turn for the same caller.
// Both phases follow the store-before-session lock order, so a turn that
// starts between them can only refresh the candidate, never deadlock it.
func (m *MemoryStore) Sweep(maxIdle time.Duration) int {
	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	removed := 0
	now := time.Now()
	for _, s := range candidates {
		s.Lock()
		idle := now.Sub(s.LastUpdate) > maxIdle
		s.Unlock()
		if !idle {
			continue
		}
		m.mu.Lock()
		// Re-check under the store lock: a turn may have replaced or
		// refreshed the session while we were scanning.
		if current, exists := m.sessions[s.CallerID]; exists && current == s {
			current.Lock()
			stillIdle := now.Sub(current.LastUpdate) > maxIdle
			current.Unlock()
			if stillIdle {
				delete(m.sessions, s.CallerID)
				removed++
			}
		}
		m.mu.Unlock()
	}
	return removed
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
