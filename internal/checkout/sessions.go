package checkout

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dosahub/backend-pos/internal/cart"
	"github.com/dosahub/backend-pos/internal/order"
)

// ErrSessionNotFound indicates the checkout session does not exist or has
// expired.
var ErrSessionNotFound = errors.New("checkout: session not found")

// Session owns one cart from open to finalization. Engine operations on a
// session are serialized by its mutex; the cart itself carries no locking.
type Session struct {
	ID        string
	Cart      *cart.Cart
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	// pending holds a finalized order whose persistence sink failed, so the
	// sink call alone can be retried. The order itself is already committed.
	pending *order.FinalizedOrder
}

// SessionStore keeps active checkout sessions in memory. One register
// terminal drives one session at a time; sessions expire after an idle TTL.
type SessionStore struct {
	TTL time.Duration
	Now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore constructs a store with the provided idle TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &SessionStore{TTL: ttl, sessions: make(map[string]*Session)}
}

func (s *SessionStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Open creates a new session with an empty cart.
func (s *SessionStore) Open() *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Cart:      cart.New(),
		CreatedAt: now,
		lastSeen:  now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session and refreshes its idle deadline.
func (s *SessionStore) Get(id string) (*Session, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = now
	return sess, nil
}

// Close discards the session. Closing an unknown session is a no-op.
func (s *SessionStore) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) evictExpiredLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.TTL {
			delete(s.sessions, id)
		}
	}
}
