// Package engine implements the engagement decision pipeline: scam
// confidence scoring, intelligence extraction, the conversation phase state
// machine, and response selection, orchestrated per turn over an injected
// session store.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/jaalnet/jaal/pkg/patterns"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleScammer Role = "scammer"
	RoleAgent   Role = "agent"
)

// Message is one conversation turn. Immutable once appended.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Turn int       `json:"turn"` // exchange index, 1-based; the scammer message and the agent reply of one exchange share it
	Time time.Time `json:"time"`
}

// Identifier is one extracted piece of structured intelligence.
type Identifier struct {
	Type       patterns.IdentifierType `json:"type"`
	Value      string                  `json:"value"` // normalized
	Confidence float64                 `json:"confidence"`
}

// Session holds the accumulated state of one conversation.
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Phase    Phase     `json:"phase"`

	// Confidence is monotonically non-decreasing: once scam evidence
	// appears it is never forgotten. Persisted as max(previous, new).
	Confidence float64 `json:"confidence"`
	ScamType   string  `json:"scam_type,omitempty"`

	// Identifiers keyed by type, then by normalized value.
	Identifiers map[patterns.IdentifierType]map[string]Identifier `json:"identifiers"`

	ConsecutiveStalls    int `json:"consecutive_stalls"`
	ConsecutiveFallbacks int `json:"consecutive_fallbacks"`

	TurnCount  int `json:"turn_count"`  // scammer turns, 1-based
	PhaseTurns int `json:"phase_turns"` // turns spent in the current phase

	ReplyHistory []string `json:"reply_history,omitempty"` // last N agent replies
	RedFlags     []string `json:"red_flags,omitempty"`
	UrgencyLevel string   `json:"urgency_level,omitempty"`

	Ended     bool   `json:"ended"`
	EndReason string `json:"end_reason,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession creates an empty session in the INITIAL phase.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		Phase:          PhaseInitial,
		Identifiers:    make(map[patterns.IdentifierType]map[string]Identifier),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// HasIdentifier reports whether the (type, normalized value) pair is already
// stored.
func (s *Session) HasIdentifier(t patterns.IdentifierType, value string) bool {
	byValue, ok := s.Identifiers[t]
	if !ok {
		return false
	}
	_, ok = byValue[value]
	return ok
}

// AddIdentifier stores an identifier, returning false if the (type, value)
// pair was already present. Re-extraction of a seen value is a no-op.
func (s *Session) AddIdentifier(id Identifier) bool {
	if s.Identifiers == nil {
		s.Identifiers = make(map[patterns.IdentifierType]map[string]Identifier)
	}
	byValue, ok := s.Identifiers[id.Type]
	if !ok {
		byValue = make(map[string]Identifier)
		s.Identifiers[id.Type] = byValue
	}
	if _, dup := byValue[id.Value]; dup {
		return false
	}
	byValue[id.Value] = id
	return true
}

// IdentifierCount returns the total stored identifier count.
func (s *Session) IdentifierCount() int {
	n := 0
	for _, byValue := range s.Identifiers {
		n += len(byValue)
	}
	return n
}

// ExtractionProgress is the normalized count of distinct high-value
// identifier types collected, capped at 1.0.
func (s *Session) ExtractionProgress() float64 {
	distinct := 0
	for _, t := range patterns.HighValueTypes {
		if len(s.Identifiers[t]) > 0 {
			distinct++
		}
	}
	progress := float64(distinct) / 5.0
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// AppendMessage appends an immutable message for the current turn.
func (s *Session) AppendMessage(role Role, text string) {
	s.Messages = append(s.Messages, Message{
		Role: role,
		Text: text,
		Turn: s.TurnCount,
		Time: time.Now(),
	})
}

// RememberReply records an emitted agent reply for anti-repetition,
// keeping the most recent window.
func (s *Session) RememberReply(reply string, window int) {
	s.ReplyHistory = append(s.ReplyHistory, reply)
	if window > 0 && len(s.ReplyHistory) > window {
		s.ReplyHistory = s.ReplyHistory[len(s.ReplyHistory)-window:]
	}
}

// AddRedFlag records a labeled red flag once per session.
func (s *Session) AddRedFlag(label string) {
	for _, f := range s.RedFlags {
		if f == label {
			return
		}
	}
	s.RedFlags = append(s.RedFlags, label)
}

// Snapshot returns a deep copy of the session, safe to read after the
// per-session lock is released. The in-memory store hands out the live
// pointer; anything that outlives the lock must read a snapshot instead.
func (s *Session) Snapshot() *Session {
	cp := *s
	if s.Messages != nil {
		cp.Messages = append([]Message(nil), s.Messages...)
	}
	if s.ReplyHistory != nil {
		cp.ReplyHistory = append([]string(nil), s.ReplyHistory...)
	}
	if s.RedFlags != nil {
		cp.RedFlags = append([]string(nil), s.RedFlags...)
	}
	cp.Identifiers = make(map[patterns.IdentifierType]map[string]Identifier, len(s.Identifiers))
	for t, byValue := range s.Identifiers {
		inner := make(map[string]Identifier, len(byValue))
		for value, id := range byValue {
			inner[value] = id
		}
		cp.Identifiers[t] = inner
	}
	return &cp
}

// EngagementSeconds estimates how long the counterpart has been tied up:
// wall-clock session age, floored at 15 seconds per message.
func (s *Session) EngagementSeconds() int {
	wall := int(s.LastActivityAt.Sub(s.CreatedAt).Seconds())
	floor := len(s.Messages) * 15
	if floor > wall {
		return floor
	}
	return wall
}

// ============================================================================
// SESSION STORE
// ============================================================================
// Thread-safe session storage with TTL-based eviction. The core pipeline is
// pure; all cross-turn state lives behind this interface. Same-session turns
// must be serialized through Lock - the monotonic-confidence and
// anti-repetition invariants assume single-writer semantics.

// SessionStore is the injected persistence abstraction.
type SessionStore interface {
	// Get retrieves a session by ID. Returns nil, nil if not found.
	Get(sessionID string) (*Session, error)
	// Save creates or updates a session.
	Save(s *Session) error
	// Delete removes a session.
	Delete(sessionID string) error
	// Lock acquires the per-session mutex and returns its release func.
	Lock(sessionID string) (unlock func())
	// Stats returns store statistics.
	Stats() StoreStats
	// Close releases store resources.
	Close()
}

// StoreStats contains session store statistics.
type StoreStats struct {
	SessionCount  int `json:"session_count"`
	TotalTurns    int `json:"total_turns"`
	TotalMessages int `json:"total_messages"`
}

// lockTable hands out one mutex per session ID. The sweeper uses TryLock to
// skip sessions with an in-flight turn.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(sessionID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[sessionID] = l
	}
	return l
}

func (t *lockTable) tryLock(sessionID string) (unlock func(), ok bool) {
	l := t.get(sessionID)
	if !l.TryLock() {
		return nil, false
	}
	return l.Unlock, true
}

// InMemoryStore implements SessionStore with in-memory storage.
// Suitable for single-node deployments; pkg/store provides a Redis-backed
// alternative for distributed ones.
type InMemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	locks    *lockTable

	// Configuration
	maxAge     time.Duration // Idle window before eviction (default: 30 min)
	cleanupTTL time.Duration // Sweep interval (default: 5 minutes)

	// Sweeper goroutine control
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// StoreOption is a functional option for configuring InMemoryStore.
type StoreOption func(*InMemoryStore)

// WithMaxAge sets the idle window before a session is evicted.
func WithMaxAge(d time.Duration) StoreOption {
	return func(s *InMemoryStore) {
		s.maxAge = d
	}
}

// WithCleanupInterval sets how often the sweeper runs.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(s *InMemoryStore) {
		s.cleanupTTL = d
	}
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions:    make(map[string]*Session),
		locks:       newLockTable(),
		maxAge:      30 * time.Minute,
		cleanupTTL:  5 * time.Minute,
		stopCleanup: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Start background sweeper
	go s.cleanupLoop()

	return s
}

// Get retrieves a session by ID. Returns nil, nil if not found or expired.
func (s *InMemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil // Not found is not an error
	}

	// Stale sessions are treated as not found; actual removal happens in
	// the sweeper.
	if time.Since(session.LastActivityAt) > s.maxAge {
		return nil, nil
	}

	return session, nil
}

// Save creates or updates a session.
func (s *InMemoryStore) Save(session *Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = time.Now()
	}
	if session.Identifiers == nil {
		session.Identifiers = make(map[patterns.IdentifierType]map[string]Identifier)
	}

	s.sessions[session.ID] = session
	return nil
}

// Delete removes a session.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Lock acquires the per-session mutex, serializing same-session turns.
func (s *InMemoryStore) Lock(sessionID string) (unlock func()) {
	l := s.locks.get(sessionID)
	l.Lock()
	return l.Unlock
}

// Close stops the sweeper goroutine.
func (s *InMemoryStore) Close() {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// cleanupLoop periodically removes expired sessions.
func (s *InMemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes sessions idle past the window. A session whose lock is
// held has a turn in flight and is skipped until the next sweep.
func (s *InMemoryStore) cleanup() {
	s.mu.RLock()
	candidates := make([]string, 0)
	now := time.Now()
	for id, session := range s.sessions {
		if now.Sub(session.LastActivityAt) > s.maxAge {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range candidates {
		unlock, ok := s.locks.tryLock(id)
		if !ok {
			continue // in-flight turn, skip
		}

		s.mu.Lock()
		session, present := s.sessions[id]
		// Re-check under the lock: a turn may have landed between scans.
		if present && time.Since(session.LastActivityAt) > s.maxAge {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		unlock()
	}
}

// Stats returns current session store statistics.
func (s *InMemoryStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{
		SessionCount: len(s.sessions),
	}

	for _, session := range s.sessions {
		stats.TotalTurns += session.TurnCount
		stats.TotalMessages += len(session.Messages)
	}

	return stats
}

// Ensure InMemoryStore implements SessionStore
var _ SessionStore = (*InMemoryStore)(nil)
