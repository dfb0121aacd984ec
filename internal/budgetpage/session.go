package budgetpage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuralbudget/internal/cache"
)

// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
var ErrSessionNotFound = errors.New("page session not found")

// Sessions keeps one Page per open budgets page, keyed by an opaque id.
// Each Page keeps the snapshot it was opened with; later writes to the
// store do not leak into it.
type Sessions struct {
	pages *cache.LRU[string, *session]
	newID func() string
}

type session struct {
	mu     sync.Mutex
	userID string
	page   *Page
}

// NewSessions creates a registry holding at most maxSize pages. A page is
// dropped after ttl without events.
func NewSessions(maxSize int, ttl time.Duration) *Sessions {
	return &Sessions{
		pages: cache.NewLRU[string, *session](maxSize, ttl),
		newID: uuid.NewString,
	}
}

// Open loads the snapshot embedded in a rendered page and returns the id of
// the new session.
func (s *Sessions) Open(userID string, data []byte) (string, error) {
	p, err := Load(data)
	if err != nil {
		return "", err
	}
	id := s.newID()
	s.pages.Set(id, &session{userID: userID, page: p})
	return id, nil
}

// Do runs fn against the session's page while holding its lock. Every call
// extends the session's lifetime.
func (s *Sessions) Do(id, userID string, fn func(*Page)) error {
	sess, ok := s.pages.Get(id)
	if !ok || sess.userID != userID {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	fn(sess.page)
	sess.mu.Unlock()

	s.pages.Set(id, sess)
	return nil
}

// CleanExpired implements cache.Cleaner.
func (s *Sessions) CleanExpired() int {
	return s.pages.CleanExpired()
}

func (s *Sessions) Len() int {
	return s.pages.Len()
}
